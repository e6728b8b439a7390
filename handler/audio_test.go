package handler

import (
	"bytes"
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"net/textproto"
	"os"
	"sync"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"medscribe/constant"
	"medscribe/dto"
	"medscribe/entities"
	"medscribe/middleware"
	"medscribe/service"
)

const testJWTSecret = "test-jwt-secret"

type fakeRepo struct {
	mu            sync.Mutex
	consultations map[uuid.UUID]*entities.Consultation
}

func newFakeRepo(consultations ...*entities.Consultation) *fakeRepo {
	r := &fakeRepo{consultations: map[uuid.UUID]*entities.Consultation{}}
	for _, c := range consultations {
		r.consultations[c.ID] = c
	}
	return r
}

func (r *fakeRepo) Transaction(ctx context.Context, callback func(ctx context.Context) error, opts ...*sql.TxOptions) error {
	return callback(ctx)
}

func (r *fakeRepo) CreateConsultation(ctx context.Context, consultation *entities.Consultation) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.consultations[consultation.ID] = consultation
	return nil
}

func (r *fakeRepo) FindConsultationById(ctx context.Context, id uuid.UUID) (*entities.Consultation, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	c, ok := r.consultations[id]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	copied := *c
	return &copied, nil
}

func (r *fakeRepo) FindConsultationByIdAndUser(ctx context.Context, id, userId uuid.UUID) (*entities.Consultation, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	c, ok := r.consultations[id]
	if !ok || c.UserID != userId {
		return nil, gorm.ErrRecordNotFound
	}
	copied := *c
	return &copied, nil
}

func (r *fakeRepo) FindConsultationsByUser(ctx context.Context, userId uuid.UUID) ([]*entities.Consultation, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*entities.Consultation
	for _, c := range r.consultations {
		if c.UserID == userId {
			copied := *c
			out = append(out, &copied)
		}
	}
	return out, nil
}

func (r *fakeRepo) UpdateConsultationStatus(ctx context.Context, status constant.ConsultationStatus, id uuid.UUID) error {
	return r.UpdateConsultation(ctx, id, map[string]interface{}{"status": status})
}

func (r *fakeRepo) UpdateConsultation(ctx context.Context, id uuid.UUID, updates map[string]interface{}) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	c, ok := r.consultations[id]
	if !ok {
		return gorm.ErrRecordNotFound
	}
	for column, value := range updates {
		switch column {
		case "status":
			c.Status = value.(constant.ConsultationStatus)
		case "error":
			c.Error = value.(string)
		case "transcript":
			c.Transcript = value.(string)
		case "patient_name":
			c.PatientName = value.(string)
		case "age":
			c.Age = value.(string)
		case "gender":
			c.Gender = value.(string)
		case "symptoms":
			c.Symptoms = value.(string)
		case "history":
			c.History = value.(string)
		case "examination":
			c.Examination = value.(string)
		case "diagnosis":
			c.Diagnosis = value.(string)
		case "prescription":
			c.Prescription = value.(string)
		case "follow_up":
			c.FollowUp = value.(string)
		}
	}
	return nil
}

func (r *fakeRepo) DeleteConsultation(ctx context.Context, id, userId uuid.UUID) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	c, ok := r.consultations[id]
	if !ok || c.UserID != userId {
		return gorm.ErrRecordNotFound
	}
	delete(r.consultations, id)
	return nil
}

func (r *fakeRepo) count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.consultations)
}

type fakeUserRepo struct {
	users map[uuid.UUID]*entities.User
}

func newFakeUserRepo(users ...*entities.User) *fakeUserRepo {
	r := &fakeUserRepo{users: map[uuid.UUID]*entities.User{}}
	for _, u := range users {
		r.users[u.ID] = u
	}
	return r
}

func (r *fakeUserRepo) CreateUser(ctx context.Context, user *entities.User) error {
	r.users[user.ID] = user
	return nil
}

func (r *fakeUserRepo) FindUserById(ctx context.Context, id uuid.UUID) (*entities.User, error) {
	u, ok := r.users[id]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	return u, nil
}

func (r *fakeUserRepo) FindUserByEmail(ctx context.Context, email string) (*entities.User, error) {
	for _, u := range r.users {
		if u.Email == email {
			return u, nil
		}
	}
	return nil, gorm.ErrRecordNotFound
}

func (r *fakeUserRepo) FindUserByEmailOrUsername(ctx context.Context, email, username string) (*entities.User, error) {
	for _, u := range r.users {
		if u.Email == email || u.Username == username {
			return u, nil
		}
	}
	return nil, gorm.ErrRecordNotFound
}

type fakeStorage struct {
	mu      sync.Mutex
	objects map[string][]byte
}

func newFakeStorage() *fakeStorage {
	return &fakeStorage{objects: map[string][]byte{}}
}

func (s *fakeStorage) Upload(ctx context.Context, objectName string, reader io.Reader, size int64, contentType string) error {
	data, err := io.ReadAll(reader)
	if err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.objects[objectName] = data
	return nil
}

func (s *fakeStorage) Download(ctx context.Context, objectName, localPath string) error {
	s.mu.Lock()
	data, ok := s.objects[objectName]
	s.mu.Unlock()
	if !ok {
		return fmt.Errorf("object not found: %s", objectName)
	}
	return os.WriteFile(localPath, data, 0o644)
}

func (s *fakeStorage) Delete(ctx context.Context, objectName string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.objects, objectName)
	return nil
}

func (s *fakeStorage) count() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.objects)
}

// syncDispatcher runs processing inline so tests observe the final state
// without polling loops.
type syncDispatcher struct {
	pipeline service.PipelineService
}

func (d *syncDispatcher) Dispatch(ctx context.Context, message dto.ProcessMessage) error {
	return d.pipeline.Process(ctx, message)
}

type captureDispatcher struct {
	messages []dto.ProcessMessage
}

func (d *captureDispatcher) Dispatch(ctx context.Context, message dto.ProcessMessage) error {
	d.messages = append(d.messages, message)
	return nil
}

type stubTranscriber struct{ text string }

func (t *stubTranscriber) Transcribe(ctx context.Context, audioPath string) (string, error) {
	return t.text, nil
}

type stubSummarizer struct{ summary *service.MedicalSummary }

func (s *stubSummarizer) Summarize(ctx context.Context, transcript string) (*service.MedicalSummary, error) {
	return s.summary, nil
}

type testEnv struct {
	router  *gin.Engine
	repo    *fakeRepo
	storage *fakeStorage
	users   *fakeUserRepo
}

func newTestEnv(t *testing.T, repo *fakeRepo, dispatcherFor func(service.PipelineService) service.Dispatcher) *testEnv {
	t.Helper()
	gin.SetMode(gin.TestMode)

	store := newFakeStorage()
	transcriber := &stubTranscriber{text: "test transcript"}
	summarizer := &stubSummarizer{summary: service.FallbackSummary()}
	pipeline := service.NewPipeline(repo, store, transcriber, summarizer)
	audioService := service.NewAudioService(repo, store, pipeline, dispatcherFor(pipeline), transcriber)

	users := newFakeUserRepo()
	audioHandler := NewAudioHandler(audioService, repo)

	r := gin.New()
	authorized := r.Group("/api", middleware.Auth(testJWTSecret, users))
	audio := authorized.Group("/audio")
	audio.POST("/upload", audioHandler.Upload)
	audio.POST("/process-step", audioHandler.ProcessStep)
	audio.POST("/transcribe", audioHandler.Transcribe)
	audio.GET("/status/:id", audioHandler.Status)
	audio.GET("/consultations", audioHandler.List)
	audio.GET("/consultation/:id", audioHandler.Get)
	audio.DELETE("/consultation/:id", audioHandler.Delete)

	return &testEnv{router: r, repo: repo, storage: store, users: users}
}

func (e *testEnv) tokenFor(t *testing.T, userId uuid.UUID) string {
	t.Helper()
	e.users.users[userId] = &entities.User{ID: userId, Username: "u-" + userId.String()[:8], Email: userId.String() + "@example.com"}
	token, err := middleware.GenerateToken(testJWTSecret, userId)
	require.NoError(t, err)
	return token
}

func audioForm(t *testing.T, filename, contentType string, content []byte) (*bytes.Buffer, string) {
	t.Helper()
	var b bytes.Buffer
	w := multipart.NewWriter(&b)
	h := textproto.MIMEHeader{}
	h.Set("Content-Disposition", fmt.Sprintf(`form-data; name="audio"; filename=%q`, filename))
	h.Set("Content-Type", contentType)
	part, err := w.CreatePart(h)
	require.NoError(t, err)
	_, err = part.Write(content)
	require.NoError(t, err)
	require.NoError(t, w.Close())
	return &b, w.FormDataContentType()
}

func (e *testEnv) do(t *testing.T, method, path, token string, body *bytes.Buffer, contentType string) *httptest.ResponseRecorder {
	t.Helper()
	if body == nil {
		body = &bytes.Buffer{}
	}
	req := httptest.NewRequest(method, path, body)
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	req.Header.Set("Authorization", "Bearer "+token)
	rec := httptest.NewRecorder()
	e.router.ServeHTTP(rec, req)
	return rec
}

func TestUploadAcknowledgesImmediately(t *testing.T) {
	env := newTestEnv(t, newFakeRepo(), func(p service.PipelineService) service.Dispatcher {
		return &captureDispatcher{}
	})
	token := env.tokenFor(t, uuid.New())

	body, contentType := audioForm(t, "visit.wav", "audio/wav", bytes.Repeat([]byte("a"), 2048))
	rec := env.do(t, http.MethodPost, "/api/audio/upload", token, body, contentType)

	require.Equal(t, http.StatusOK, rec.Code)
	var resp dto.UploadResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.True(t, resp.Success)
	assert.Equal(t, "uploaded", resp.Status)
	assert.NotEqual(t, uuid.Nil, resp.ConsultationId)
	assert.Equal(t, 1, env.repo.count())
	assert.Equal(t, 1, env.storage.count())
}

func TestUploadThenPollUntilCompleted(t *testing.T) {
	env := newTestEnv(t, newFakeRepo(), func(p service.PipelineService) service.Dispatcher {
		return &syncDispatcher{pipeline: p}
	})
	userId := uuid.New()
	token := env.tokenFor(t, userId)

	body, contentType := audioForm(t, "visit.wav", "audio/wav", bytes.Repeat([]byte("a"), 2<<20))
	rec := env.do(t, http.MethodPost, "/api/audio/upload", token, body, contentType)
	require.Equal(t, http.StatusOK, rec.Code)

	var uploadResp dto.UploadResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &uploadResp))

	rec = env.do(t, http.MethodGet, "/api/audio/status/"+uploadResp.ConsultationId.String(), token, nil, "")
	require.Equal(t, http.StatusOK, rec.Code)

	var statusResp dto.StatusResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &statusResp))
	assert.Equal(t, "completed", statusResp.Status)
	require.NotNil(t, statusResp.Consultation)
	c := statusResp.Consultation
	for _, field := range []string{
		c.PatientName, c.Age, c.Gender, c.Symptoms, c.History,
		c.Examination, c.Diagnosis, c.Prescription, c.FollowUp, c.Transcript,
	} {
		assert.NotEmpty(t, field)
	}
	assert.Zero(t, env.storage.count(), "audio must be deleted after processing")
}

func TestUploadEmptyFileRejected(t *testing.T) {
	env := newTestEnv(t, newFakeRepo(), func(p service.PipelineService) service.Dispatcher {
		return &captureDispatcher{}
	})
	token := env.tokenFor(t, uuid.New())

	body, contentType := audioForm(t, "empty.wav", "audio/wav", nil)
	rec := env.do(t, http.MethodPost, "/api/audio/upload", token, body, contentType)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Zero(t, env.repo.count(), "no consultation may be created for an empty upload")
	assert.Zero(t, env.storage.count())
}

func TestUploadDisallowedMimeTypeRejected(t *testing.T) {
	env := newTestEnv(t, newFakeRepo(), func(p service.PipelineService) service.Dispatcher {
		return &captureDispatcher{}
	})
	token := env.tokenFor(t, uuid.New())

	body, contentType := audioForm(t, "notes.txt", "text/plain", []byte("not audio at all"))
	rec := env.do(t, http.MethodPost, "/api/audio/upload", token, body, contentType)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Zero(t, env.repo.count())
	assert.Zero(t, env.storage.count(), "rejected uploads must be discarded")
}

func TestStatusReportsFailureWithPartialTranscript(t *testing.T) {
	userId := uuid.New()
	consultation := &entities.Consultation{
		ID:         uuid.New(),
		UserID:     userId,
		Status:     constant.StatusFailed,
		Error:      "summarization exploded",
		Transcript: "partial transcript",
	}
	env := newTestEnv(t, newFakeRepo(consultation), func(p service.PipelineService) service.Dispatcher {
		return &captureDispatcher{}
	})
	token := env.tokenFor(t, userId)

	rec := env.do(t, http.MethodGet, "/api/audio/status/"+consultation.ID.String(), token, nil, "")
	require.Equal(t, http.StatusOK, rec.Code)

	var resp dto.StatusResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "failed", resp.Status)
	assert.Equal(t, "summarization exploded", resp.Error)
	require.NotNil(t, resp.PartialData)
	assert.Equal(t, "partial transcript", resp.PartialData.Transcript)
}

func TestOwnershipIsolation(t *testing.T) {
	owner := uuid.New()
	consultation := &entities.Consultation{
		ID:     uuid.New(),
		UserID: owner,
		Status: constant.StatusCompleted,
	}
	env := newTestEnv(t, newFakeRepo(consultation), func(p service.PipelineService) service.Dispatcher {
		return &captureDispatcher{}
	})
	intruder := env.tokenFor(t, uuid.New())

	for _, tc := range []struct {
		method string
		path   string
	}{
		{http.MethodGet, "/api/audio/status/" + consultation.ID.String()},
		{http.MethodGet, "/api/audio/consultation/" + consultation.ID.String()},
		{http.MethodDelete, "/api/audio/consultation/" + consultation.ID.String()},
	} {
		rec := env.do(t, tc.method, tc.path, intruder, nil, "")
		assert.Equal(t, http.StatusNotFound, rec.Code, "%s %s must look like not-found for non-owners", tc.method, tc.path)
	}

	assert.Equal(t, 1, env.repo.count(), "record must survive the intruder's delete attempt")
}

func TestLegacyTranscribeAlwaysSucceeds(t *testing.T) {
	env := newTestEnv(t, newFakeRepo(), func(p service.PipelineService) service.Dispatcher {
		return &captureDispatcher{}
	})
	token := env.tokenFor(t, uuid.New())

	body, contentType := audioForm(t, "clip.mp3", "audio/mpeg", []byte("pretend mp3"))
	rec := env.do(t, http.MethodPost, "/api/audio/transcribe", token, body, contentType)

	require.Equal(t, http.StatusOK, rec.Code)
	var resp dto.TranscribeResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.True(t, resp.Success)
	assert.Equal(t, "test transcript", resp.Text)
	assert.Zero(t, env.repo.count(), "legacy endpoint persists nothing")
}

func TestProcessStepReturnsCompletedConsultation(t *testing.T) {
	env := newTestEnv(t, newFakeRepo(), func(p service.PipelineService) service.Dispatcher {
		return &captureDispatcher{}
	})
	token := env.tokenFor(t, uuid.New())

	body, contentType := audioForm(t, "visit.m4a", "audio/m4a", []byte("pretend m4a"))
	rec := env.do(t, http.MethodPost, "/api/audio/process-step", token, body, contentType)

	require.Equal(t, http.StatusOK, rec.Code)
	var resp struct {
		Success      bool                   `json:"success"`
		Status       string                 `json:"status"`
		Consultation *entities.Consultation `json:"consultation"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.True(t, resp.Success)
	assert.Equal(t, "completed", resp.Status)
	require.NotNil(t, resp.Consultation)
	assert.NotEmpty(t, resp.Consultation.Transcript)
	assert.Zero(t, env.storage.count())
}

func TestRequestsWithoutTokenRejected(t *testing.T) {
	env := newTestEnv(t, newFakeRepo(), func(p service.PipelineService) service.Dispatcher {
		return &captureDispatcher{}
	})

	req := httptest.NewRequest(http.MethodGet, "/api/audio/consultations", nil)
	rec := httptest.NewRecorder()
	env.router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}
