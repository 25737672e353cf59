package usecase

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/YashHaritash/btp-backend/internal/domain"
	"github.com/YashHaritash/btp-backend/internal/pool"
	"github.com/YashHaritash/btp-backend/internal/profile"
	"github.com/YashHaritash/btp-backend/internal/realtime"
	mockrepo "github.com/YashHaritash/btp-backend/internal/repository/mock"
	"github.com/YashHaritash/btp-backend/internal/session"
)

type fakeExecutor struct {
	mu       sync.Mutex
	requests []*domain.ExecutionRequest
	ExecFunc func(ctx context.Context, req *domain.ExecutionRequest) (*domain.ExecutionResult, error)
}

func (f *fakeExecutor) Execute(ctx context.Context, req *domain.ExecutionRequest) (*domain.ExecutionResult, error) {
	f.mu.Lock()
	f.requests = append(f.requests, req)
	f.mu.Unlock()
	if f.ExecFunc != nil {
		return f.ExecFunc(ctx, req)
	}
	return &domain.ExecutionResult{ExecutionID: req.ID, Status: domain.StatusSuccess, Stdout: "ok\n"}, nil
}

func newTestPool(t *testing.T, size, queue int) *pool.WorkerPool {
	t.Helper()
	p := pool.NewWorkerPool(size, queue, zap.NewNop())
	p.Start()
	t.Cleanup(p.Stop)
	return p
}

func TestRunCode_Success(t *testing.T) {
	exec := &fakeExecutor{}
	runs := mockrepo.NewMockRunRepository()
	uc := NewRunCodeUsecase(profile.NewRegistry(), newTestPool(t, 2, 2), exec, runs, zap.NewNop())

	result, err := uc.Execute(context.Background(), domain.LangPython, &domain.RunRequest{
		Code:     "print('ok')",
		FileName: "app.py",
		AllFiles: map[string]string{"util.py": "X = 1"},
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result.Status != domain.StatusSuccess {
		t.Errorf("expected SUCCESS, got %s", result.Status)
	}

	if len(exec.requests) != 1 {
		t.Fatalf("expected 1 execution, got %d", len(exec.requests))
	}
	req := exec.requests[0]
	if req.ID.Version() != 7 {
		t.Errorf("expected UUIDv7, got version %d", req.ID.Version())
	}
	if req.MainFileName != "app.py" || req.AuxFiles["util.py"] != "X = 1" {
		t.Errorf("request not forwarded intact: %+v", req)
	}

	recorded := runs.GetAll()
	if len(recorded) != 1 {
		t.Fatalf("expected 1 recorded run, got %d", len(recorded))
	}
	if recorded[0].ExecutionID != result.ExecutionID || recorded[0].Status != domain.StatusSuccess {
		t.Errorf("unexpected run record: %+v", recorded[0])
	}

	got, err := uc.GetRun(context.Background(), result.ExecutionID)
	if err != nil || got.SourceCode != "print('ok')" {
		t.Errorf("GetRun = %+v, %v", got, err)
	}
}

func TestRunCode_Validation(t *testing.T) {
	exec := &fakeExecutor{}
	uc := NewRunCodeUsecase(profile.NewRegistry(), newTestPool(t, 1, 1), exec, nil, zap.NewNop())

	tests := []struct {
		name string
		lang domain.Language
		req  *domain.RunRequest
		want error
	}{
		{"unknown language", domain.Language("ruby"), &domain.RunRequest{Code: "puts 1"}, domain.ErrInvalidLanguage},
		{"missing code", domain.LangC, &domain.RunRequest{}, domain.ErrEmptySourceCode},
		{"oversized tree", domain.LangPython, &domain.RunRequest{
			Code:     "print(1)",
			AllFiles: map[string]string{"big.txt": strings.Repeat("x", maxSourceTreeSize)},
		}, domain.ErrPayloadTooLarge},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := uc.Execute(context.Background(), tt.lang, tt.req)
			if !errors.Is(err, tt.want) {
				t.Errorf("expected %v, got %v", tt.want, err)
			}
		})
	}
	if len(exec.requests) != 0 {
		t.Errorf("rejected requests must not reach the engine, got %d", len(exec.requests))
	}
}

func TestRunCode_EngineError(t *testing.T) {
	exec := &fakeExecutor{ExecFunc: func(context.Context, *domain.ExecutionRequest) (*domain.ExecutionResult, error) {
		return nil, domain.ErrInvalidPath
	}}
	runs := mockrepo.NewMockRunRepository()
	uc := NewRunCodeUsecase(profile.NewRegistry(), newTestPool(t, 1, 1), exec, runs, zap.NewNop())

	_, err := uc.Execute(context.Background(), domain.LangPython, &domain.RunRequest{Code: "x"})
	if !errors.Is(err, domain.ErrInvalidPath) {
		t.Errorf("expected ErrInvalidPath, got %v", err)
	}
	if len(runs.GetAll()) != 0 {
		t.Error("rejected requests must not be recorded")
	}
}

func TestRunCode_PanicBecomesInternalError(t *testing.T) {
	exec := &fakeExecutor{ExecFunc: func(context.Context, *domain.ExecutionRequest) (*domain.ExecutionResult, error) {
		panic("boom")
	}}
	uc := NewRunCodeUsecase(profile.NewRegistry(), newTestPool(t, 1, 1), exec, nil, zap.NewNop())

	result, err := uc.Execute(context.Background(), domain.LangPython, &domain.RunRequest{Code: "x"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result.Status != domain.StatusInternalError {
		t.Errorf("expected INTERNAL_ERROR, got %s", result.Status)
	}
}

type busyAdmitter struct{}

func (busyAdmitter) Do(context.Context, pool.Task) error { return domain.ErrServerBusy }

func TestRunCode_PoolSaturated(t *testing.T) {
	exec := &fakeExecutor{}
	uc := NewRunCodeUsecase(profile.NewRegistry(), busyAdmitter{}, exec, nil, zap.NewNop())

	_, err := uc.Execute(context.Background(), domain.LangPython, &domain.RunRequest{Code: "x"})
	if !errors.Is(err, domain.ErrServerBusy) {
		t.Errorf("expected ErrServerBusy, got %v", err)
	}
	if len(exec.requests) != 0 {
		t.Error("a rejected request must not reach the engine")
	}
}

func TestRunCode_CallerGivesUp(t *testing.T) {
	release := make(chan struct{})
	exec := &fakeExecutor{ExecFunc: func(ctx context.Context, req *domain.ExecutionRequest) (*domain.ExecutionResult, error) {
		<-release
		return &domain.ExecutionResult{ExecutionID: req.ID, Status: domain.StatusSuccess}, nil
	}}
	uc := NewRunCodeUsecase(profile.NewRegistry(), newTestPool(t, 1, 1), exec, nil, zap.NewNop())
	defer close(release)

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	if _, err := uc.Execute(ctx, domain.LangPython, &domain.RunRequest{Code: "x"}); !errors.Is(err, context.DeadlineExceeded) {
		t.Errorf("expected DeadlineExceeded, got %v", err)
	}
}

func TestRunCode_RecordFailureIsIgnored(t *testing.T) {
	runs := mockrepo.NewMockRunRepository()
	runs.RecordFunc = func(context.Context, *domain.RunRecord) error {
		return errors.New("connection refused")
	}
	uc := NewRunCodeUsecase(profile.NewRegistry(), newTestPool(t, 1, 1), &fakeExecutor{}, runs, zap.NewNop())

	result, err := uc.Execute(context.Background(), domain.LangJavaScript, &domain.RunRequest{Code: "console.log(1)"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result.Status != domain.StatusSuccess {
		t.Errorf("expected SUCCESS, got %s", result.Status)
	}
}

func TestGetRun_NoHistory(t *testing.T) {
	uc := NewRunCodeUsecase(profile.NewRegistry(), newTestPool(t, 1, 1), &fakeExecutor{}, nil, zap.NewNop())
	if _, err := uc.GetRun(context.Background(), uuid.New()); !errors.Is(err, domain.ErrDatabaseUnavailable) {
		t.Errorf("expected ErrDatabaseUnavailable, got %v", err)
	}

	uc = NewRunCodeUsecase(profile.NewRegistry(), newTestPool(t, 1, 1), &fakeExecutor{}, mockrepo.NewMockRunRepository(), zap.NewNop())
	if _, err := uc.GetRun(context.Background(), uuid.New()); !errors.Is(err, domain.ErrRunNotFound) {
		t.Errorf("expected ErrRunNotFound, got %v", err)
	}
}

// --- sessions and files ---

type fixture struct {
	store    *session.MemoryStore
	hub      *realtime.Hub
	sessions *mockrepo.MockSessionRepository
	files    *mockrepo.MockFileRepository
	sessUC   *SessionUsecase
	fileUC   *FileUsecase
}

func newFixture() *fixture {
	f := &fixture{
		store:    session.NewMemoryStore(),
		sessions: mockrepo.NewMockSessionRepository(),
		files:    mockrepo.NewMockFileRepository(),
	}
	f.hub = realtime.NewHub(f.store, "test", zap.NewNop())
	f.sessUC = NewSessionUsecase(f.sessions, f.hub, zap.NewNop())
	f.fileUC = NewFileUsecase(f.sessions, f.files, f.hub, zap.NewNop())
	return f
}

func TestSession_CreateJoinLeave(t *testing.T) {
	f := newFixture()
	ctx := context.Background()

	s, err := f.sessUC.Create(ctx, "alice")
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if len(s.SessionID) != sessionIDLength {
		t.Errorf("expected a %d character session id, got %q", sessionIDLength, s.SessionID)
	}
	if s.Creator != "alice" {
		t.Errorf("expected creator alice, got %s", s.Creator)
	}

	joined, err := f.sessUC.Join(ctx, s.SessionID, "bob")
	if err != nil {
		t.Fatalf("join: %v", err)
	}
	if len(joined.Participants) != 2 {
		t.Errorf("expected 2 participants, got %v", joined.Participants)
	}

	// Joining twice does not duplicate the participant.
	joined, _ = f.sessUC.Join(ctx, s.SessionID, "bob")
	if len(joined.Participants) != 2 {
		t.Errorf("expected 2 participants after rejoin, got %v", joined.Participants)
	}

	list, err := f.sessUC.ListByUser(ctx, "bob")
	if err != nil || len(list) != 1 {
		t.Fatalf("ListByUser = %v, %v", list, err)
	}

	if err := f.sessUC.Leave(ctx, s.SessionID, "bob"); err != nil {
		t.Fatalf("leave: %v", err)
	}
	list, _ = f.sessUC.ListByUser(ctx, "bob")
	if len(list) != 0 {
		t.Errorf("expected no sessions after leave, got %d", len(list))
	}

	if _, err := f.sessUC.Join(ctx, "nope0", "bob"); !errors.Is(err, domain.ErrSessionNotFound) {
		t.Errorf("expected ErrSessionNotFound, got %v", err)
	}
}

func TestSession_CreateRetriesOnCollision(t *testing.T) {
	f := newFixture()
	calls := 0
	f.sessions.CreateFunc = func(ctx context.Context, s *domain.Session) error {
		calls++
		if calls < 3 {
			return domain.ErrSessionExists
		}
		return nil
	}

	if _, err := f.sessUC.Create(context.Background(), "alice"); err != nil {
		t.Fatalf("create: %v", err)
	}
	if calls != 3 {
		t.Errorf("expected 3 attempts, got %d", calls)
	}

	calls = 0
	f.sessions.CreateFunc = func(context.Context, *domain.Session) error { calls++; return domain.ErrSessionExists }
	if _, err := f.sessUC.Create(context.Background(), "alice"); !errors.Is(err, domain.ErrSessionExists) {
		t.Errorf("expected ErrSessionExists, got %v", err)
	}
	if calls != sessionIDAttempts {
		t.Errorf("expected %d attempts, got %d", sessionIDAttempts, calls)
	}
}

func TestSession_DeleteDropsLiveState(t *testing.T) {
	f := newFixture()
	ctx := context.Background()

	s, _ := f.sessUC.Create(ctx, "alice")
	if _, err := f.fileUC.Create(ctx, s.SessionID, "main.py", "print(1)", "", "alice"); err != nil {
		t.Fatalf("create file: %v", err)
	}

	if err := f.sessUC.Delete(ctx, s.SessionID, "bob"); !errors.Is(err, domain.ErrForbidden) {
		t.Errorf("expected ErrForbidden for non-creator, got %v", err)
	}
	if err := f.sessUC.Delete(ctx, s.SessionID, "alice"); err != nil {
		t.Fatalf("delete: %v", err)
	}

	snap, _ := f.store.Snapshot(ctx, s.SessionID)
	if snap.Exists {
		t.Error("expected live state to be dropped with the session")
	}
	if _, err := f.sessUC.Details(ctx, s.SessionID); !errors.Is(err, domain.ErrSessionNotFound) {
		t.Errorf("expected ErrSessionNotFound, got %v", err)
	}
}

func TestFile_LifecycleKeepsStoreInStep(t *testing.T) {
	f := newFixture()
	ctx := context.Background()
	s, _ := f.sessUC.Create(ctx, "alice")
	id := s.SessionID

	file, err := f.fileUC.Create(ctx, id, "main.py", "print(1)", "", "alice")
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if file.Language != domain.LangPython {
		t.Errorf("expected inferred language python, got %s", file.Language)
	}
	if _, err := f.fileUC.Create(ctx, id, "main.py", "", "", "alice"); !errors.Is(err, domain.ErrFileExists) {
		t.Errorf("expected ErrFileExists, got %v", err)
	}

	if _, err := f.fileUC.UpdateContent(ctx, id, "main.py", "print(2)", "bob"); err != nil {
		t.Fatalf("update: %v", err)
	}
	if _, err := f.fileUC.Rename(ctx, id, "main.py", "app.py", "bob"); err != nil {
		t.Fatalf("rename: %v", err)
	}

	snap, _ := f.store.Snapshot(ctx, id)
	if _, stale := snap.Files["main.py"]; stale {
		t.Error("renamed-away name must not remain in the store")
	}
	if snap.Files["app.py"] != "print(2)" {
		t.Errorf("expected app.py to carry the latest content, got %q", snap.Files["app.py"])
	}

	got, err := f.fileUC.Get(ctx, id, "app.py")
	if err != nil || got.LastModifiedBy != "bob" {
		t.Errorf("Get = %+v, %v", got, err)
	}

	if err := f.fileUC.Delete(ctx, id, "app.py", "bob"); err != nil {
		t.Fatalf("delete: %v", err)
	}
	snap, _ = f.store.Snapshot(ctx, id)
	if len(snap.Files) != 0 {
		t.Errorf("expected no files in the store, got %v", snap.Files)
	}

	list, err := f.fileUC.List(ctx, id)
	if err != nil || len(list) != 0 {
		t.Errorf("List = %v, %v", list, err)
	}
}

func TestFile_Errors(t *testing.T) {
	f := newFixture()
	ctx := context.Background()
	s, _ := f.sessUC.Create(ctx, "alice")

	if _, err := f.fileUC.Create(ctx, s.SessionID, "../etc/passwd", "", "", "alice"); !errors.Is(err, domain.ErrInvalidPath) {
		t.Errorf("expected ErrInvalidPath, got %v", err)
	}
	if _, err := f.fileUC.Create(ctx, "nope0", "a.py", "", "", "alice"); !errors.Is(err, domain.ErrSessionNotFound) {
		t.Errorf("expected ErrSessionNotFound, got %v", err)
	}
	if _, err := f.fileUC.UpdateContent(ctx, s.SessionID, "missing.py", "x", "alice"); !errors.Is(err, domain.ErrFileNotFound) {
		t.Errorf("expected ErrFileNotFound, got %v", err)
	}
	if err := f.fileUC.Delete(ctx, s.SessionID, "missing.py", "alice"); !errors.Is(err, domain.ErrFileNotFound) {
		t.Errorf("expected ErrFileNotFound, got %v", err)
	}

	f.fileUC.Create(ctx, s.SessionID, "a.py", "", "", "alice")
	f.fileUC.Create(ctx, s.SessionID, "b.py", "", "", "alice")
	if _, err := f.fileUC.Rename(ctx, s.SessionID, "a.py", "b.py", "alice"); !errors.Is(err, domain.ErrFileExists) {
		t.Errorf("expected ErrFileExists, got %v", err)
	}
	if _, err := f.fileUC.Rename(ctx, s.SessionID, "a.py", "/abs.py", "alice"); !errors.Is(err, domain.ErrInvalidPath) {
		t.Errorf("expected ErrInvalidPath, got %v", err)
	}
}

func TestCode_UpdateKeepsHistory(t *testing.T) {
	store := session.NewMemoryStore()
	hub := realtime.NewHub(store, "test", zap.NewNop())
	uc := NewCodeUsecase(mockrepo.NewMockCodeRepository(), hub, zap.NewNop())
	ctx := context.Background()

	doc, err := uc.Get(ctx, "ABCDE")
	if err != nil || doc.Code != "" || len(doc.VersionHistory) != 0 {
		t.Fatalf("Get on empty session = %+v, %v", doc, err)
	}

	uc.Update(ctx, "ABCDE", "v1", "alice")
	doc, err = uc.Update(ctx, "ABCDE", "v2", "alice")
	if err != nil {
		t.Fatalf("update: %v", err)
	}
	if doc.Code != "v2" || len(doc.VersionHistory) != 2 {
		t.Errorf("unexpected document: %+v", doc)
	}

	snap, _ := store.Snapshot(ctx, "ABCDE")
	if snap.LegacyCode == nil || *snap.LegacyCode != "v2" {
		t.Errorf("expected live legacy code v2, got %v", snap.LegacyCode)
	}
}
