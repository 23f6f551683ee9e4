package service

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/kanchangiri67/OncoCist/internal/core/domain"
	"github.com/kanchangiri67/OncoCist/internal/core/ports"
)

func TestScanService_Upload_Success(t *testing.T) {
	f := newFixture()
	ctx := context.Background()

	patient, scans, err := f.scans.Upload(ctx, ports.UploadInput{
		AccountID:   1,
		PatientName: "Jane Doe",
		PatientAge:  34,
		PatientSex:  "Female",
		ScanDate:    time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC),
		Notes:       " follow-up ",
		Files: []ports.UploadFile{
			{Filename: "brain.png", Data: []byte("a")},
			{Filename: `C:\scans\brain.NII.GZ`, Data: []byte("b")},
		},
	})
	if err != nil {
		t.Fatalf("Upload: %v", err)
	}
	if patient.Name != "Jane Doe" || len(scans) != 2 {
		t.Fatalf("unexpected result: %+v %d", patient, len(scans))
	}

	for _, sc := range scans {
		if sc.ID == 0 || sc.AccountID != 1 || sc.PatientID != patient.ID {
			t.Fatalf("unexpected scan: %+v", sc)
		}
		if sc.PatientName != "Jane Doe" || sc.PatientAge != 34 || sc.PatientSex != "Female" {
			t.Fatalf("patient snapshot missing: %+v", sc)
		}
		if sc.Notes != "follow-up" {
			t.Fatalf("unexpected notes %q", sc.Notes)
		}
		if strings.Contains(sc.FilePath, `\`) || !strings.HasPrefix(sc.FilePath, "uploads/patient_") {
			t.Fatalf("unexpected path %q", sc.FilePath)
		}
		if !f.blobs.has(sc.FilePath) {
			t.Fatalf("file %q not stored", sc.FilePath)
		}
	}
	if scans[0].FilePath == scans[1].FilePath {
		t.Fatalf("file keys collide")
	}
	if !strings.HasSuffix(scans[1].FilePath, "_brain.NII.GZ") {
		t.Fatalf("original base name not kept: %q", scans[1].FilePath)
	}
	if got := f.events.types(); len(got) != 2 || got[0] != domain.EventScanUploaded {
		t.Fatalf("unexpected events %v", got)
	}
}

func TestScanService_Upload_SnapshotIsPointInTime(t *testing.T) {
	f := newFixture()
	first := f.upload(t, 1, "Jane Doe", "a.png")

	// A later upload with new demographics reuses the record unchanged.
	_, later, err := f.scans.Upload(context.Background(), ports.UploadInput{
		AccountID:   1,
		PatientName: "Jane Doe",
		PatientAge:  60,
		PatientSex:  "Female",
		Files:       []ports.UploadFile{{Filename: "b.png", Data: []byte("b")}},
	})
	if err != nil {
		t.Fatalf("Upload: %v", err)
	}
	if later[0].PatientID != first[0].PatientID || later[0].PatientAge != 34 {
		t.Fatalf("expected snapshot of existing patient, got %+v", later[0])
	}
}

func TestScanService_Upload_RejectsExtensionBeforeAnyWrite(t *testing.T) {
	f := newFixture()

	_, _, err := f.scans.Upload(context.Background(), ports.UploadInput{
		AccountID:   1,
		PatientName: "Jane Doe",
		Files: []ports.UploadFile{
			{Filename: "ok.png", Data: []byte("a")},
			{Filename: "scan.txt", Data: []byte("b")},
		},
	})
	if !errors.Is(err, domain.ErrUnsupportedFormat) {
		t.Fatalf("expected ErrUnsupportedFormat, got %v", err)
	}
	if f.blobs.puts != 0 || len(f.store.scans) != 0 || len(f.store.patients) != 0 {
		t.Fatalf("expected no writes, got puts=%d scans=%d patients=%d", f.blobs.puts, len(f.store.scans), len(f.store.patients))
	}
}

func TestScanService_Upload_NoFiles(t *testing.T) {
	f := newFixture()
	_, _, err := f.scans.Upload(context.Background(), ports.UploadInput{AccountID: 1, PatientName: "Jane Doe"})
	if !errors.Is(err, domain.ErrInvalidInput) {
		t.Fatalf("expected ErrInvalidInput, got %v", err)
	}
}

func TestScanService_Upload_StorageFailureRollsBackFiles(t *testing.T) {
	f := newFixture()
	f.blobs.putErr = errors.New("disk full")
	f.blobs.failOn = 2

	_, _, err := f.scans.Upload(context.Background(), ports.UploadInput{
		AccountID:   1,
		PatientName: "Jane Doe",
		Files: []ports.UploadFile{
			{Filename: "a.png", Data: []byte("a")},
			{Filename: "b.png", Data: []byte("b")},
		},
	})
	if !errors.Is(err, domain.ErrStorage) {
		t.Fatalf("expected ErrStorage, got %v", err)
	}
	if len(f.store.scans) != 0 {
		t.Fatalf("scan rows left behind: %d", len(f.store.scans))
	}
	if len(f.blobs.data) != 0 || len(f.blobs.deleted) != 1 {
		t.Fatalf("first file not rolled back: data=%d deleted=%v", len(f.blobs.data), f.blobs.deleted)
	}
}

func TestScanService_Upload_RowFailureRemovesFiles(t *testing.T) {
	f := newFixture()
	f.store.createBatchErr = errors.New("connection reset")

	_, _, err := f.scans.Upload(context.Background(), ports.UploadInput{
		AccountID:   1,
		PatientName: "Jane Doe",
		Files:       []ports.UploadFile{{Filename: "a.png", Data: []byte("a")}},
	})
	if !errors.Is(err, domain.ErrStorage) {
		t.Fatalf("expected ErrStorage, got %v", err)
	}
	if len(f.blobs.data) != 0 {
		t.Fatalf("orphaned files left: %d", len(f.blobs.data))
	}
}

func TestScanService_ListForOwner_RecentCapAndOrder(t *testing.T) {
	f := newFixture()
	for i := 0; i < 7; i++ {
		f.upload(t, 1, "Jane Doe", "a.png")
		time.Sleep(time.Millisecond)
	}
	f.upload(t, 2, "Jane Doe", "other.png")

	recent, err := f.scans.ListForOwner(context.Background(), 1, true)
	if err != nil {
		t.Fatalf("ListForOwner: %v", err)
	}
	if len(recent) != domain.RecentScanLimit {
		t.Fatalf("expected %d recent scans, got %d", domain.RecentScanLimit, len(recent))
	}
	for i := 1; i < len(recent); i++ {
		if recent[i].Scan.UploadedAt.After(recent[i-1].Scan.UploadedAt) {
			t.Fatalf("not ordered by upload time descending")
		}
	}

	all, err := f.scans.ListForOwner(context.Background(), 1, false)
	if err != nil {
		t.Fatalf("ListForOwner: %v", err)
	}
	if len(all) != 7 {
		t.Fatalf("expected 7 scans, got %d", len(all))
	}
	for _, rec := range all {
		if rec.Prediction != nil || rec.Uploader != nil {
			t.Fatalf("unexpected joins on owner listing: %+v", rec)
		}
	}
}

func TestScanService_ListForPatient_AnyAccountWithPrediction(t *testing.T) {
	f := newFixture()
	ctx := context.Background()
	owner, _ := f.accounts.Create(ctx, &domain.Account{Username: "owner", Email: "owner@example.com"})
	scans := f.upload(t, owner.ID, "Jane Doe", "a.png")

	if _, err := f.predictor.Predict(ctx, scans[0].ID); err != nil {
		t.Fatalf("Predict: %v", err)
	}

	recs, err := f.scans.ListForPatient(ctx, scans[0].PatientID, true)
	if err != nil {
		t.Fatalf("ListForPatient: %v", err)
	}
	if len(recs) != 1 || recs[0].Prediction == nil || recs[0].Prediction.Status != domain.PredictionCompleted {
		t.Fatalf("expected scan joined with prediction, got %+v", recs)
	}
	if recs[0].Uploader == nil || recs[0].Uploader.Username != "owner" {
		t.Fatalf("expected uploader, got %+v", recs[0].Uploader)
	}
}

func TestScanService_ListForPatient_MissingPatient(t *testing.T) {
	f := newFixture()
	if _, err := f.scans.ListForPatient(context.Background(), 77, false); !errors.Is(err, domain.ErrPatientNotFound) {
		t.Fatalf("expected ErrPatientNotFound, got %v", err)
	}
}

func TestScanService_Delete_OwnerOnly(t *testing.T) {
	f := newFixture()
	ctx := context.Background()
	scans := f.upload(t, 1, "Jane Doe", "a.png")
	res, err := f.predictor.Predict(ctx, scans[0].ID)
	if err != nil {
		t.Fatalf("Predict: %v", err)
	}

	if err := f.scans.Delete(ctx, scans[0].ID, 2); !errors.Is(err, domain.ErrScanNotFound) {
		t.Fatalf("expected ErrScanNotFound for non-owner, got %v", err)
	}
	if _, err := (memScans{f.store}).FindByID(ctx, scans[0].ID); err != nil {
		t.Fatalf("scan removed by non-owner")
	}
	if _, err := (memPredictions{f.store}).FindByScanID(ctx, scans[0].ID); err != nil {
		t.Fatalf("prediction removed by non-owner")
	}

	if err := f.scans.Delete(ctx, scans[0].ID, 1); err != nil {
		t.Fatalf("Delete by owner: %v", err)
	}
	if _, err := (memPredictions{f.store}).FindByScanID(ctx, scans[0].ID); !errors.Is(err, domain.ErrPredictionNotFound) {
		t.Fatalf("prediction not cascaded")
	}
	if f.blobs.has(scans[0].FilePath) || f.blobs.has(res.Prediction.ResultPath) {
		t.Fatalf("files not removed")
	}

	if err := f.scans.Delete(ctx, scans[0].ID, 1); !errors.Is(err, domain.ErrScanNotFound) {
		t.Fatalf("expected ErrScanNotFound on second delete, got %v", err)
	}
}

func TestScanService_Upload_UploadedAtMatchesHistory(t *testing.T) {
	f := newFixture()
	f.scans.(*scanService).now = func() time.Time {
		return time.Date(2024, 1, 1, 10, 0, 0, 987654321, time.UTC)
	}

	uploaded := f.upload(t, 1, "Jane Doe", "a.png")

	history, err := f.scans.ListForOwner(context.Background(), 1, false)
	if err != nil {
		t.Fatalf("ListForOwner: %v", err)
	}
	if len(history) != 1 {
		t.Fatalf("expected 1 scan, got %d", len(history))
	}
	if history[0].Scan.UploadedAt != uploaded[0].UploadedAt {
		t.Fatalf("uploaded_at differs: upload %s, history %s",
			uploaded[0].UploadedAt.Format(time.RFC3339Nano), history[0].Scan.UploadedAt.Format(time.RFC3339Nano))
	}
	if !strings.Contains(uploaded[0].FilePath, "987654321") {
		t.Fatalf("file key lost nanosecond stamp: %s", uploaded[0].FilePath)
	}
}
