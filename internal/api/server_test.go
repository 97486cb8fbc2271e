package api

import (
	"context"

	"github.com/codeready-toolchain/tabletalk/internal/agent"
	"github.com/codeready-toolchain/tabletalk/internal/errs"
	"github.com/codeready-toolchain/tabletalk/internal/models"
	"github.com/codeready-toolchain/tabletalk/internal/store"
	"github.com/codeready-toolchain/tabletalk/internal/tools"
)

// fakeController lets handler tests exercise queryHandler's wiring without
// a real LLM provider or document store, the way pkg/api/*_test.go stubs
// its service layer with hand-built fakes rather than mocking frameworks.
type fakeController struct {
	result *agent.ExecutionResult
	err    error
}

func (f *fakeController) Run(ctx context.Context, execCtx *agent.ExecutionContext) (*agent.ExecutionResult, error) {
	return f.result, f.err
}

type fakeConversations struct {
	conversations map[string]*models.Conversation
	messages      map[string][]models.Message
}

func newFakeConversations() *fakeConversations {
	return &fakeConversations{
		conversations: make(map[string]*models.Conversation),
		messages:      make(map[string][]models.Message),
	}
}

func (f *fakeConversations) Get(ctx context.Context, id string) (*models.Conversation, error) {
	conv, ok := f.conversations[id]
	if !ok {
		return nil, errs.ErrNotFound
	}
	return conv, nil
}

func (f *fakeConversations) Update(ctx context.Context, conv *models.Conversation) error {
	f.conversations[conv.ID] = conv
	return nil
}

func (f *fakeConversations) AppendMessage(ctx context.Context, msg *models.Message) error {
	f.messages[msg.ConversationID] = append(f.messages[msg.ConversationID], *msg)
	return nil
}

func (f *fakeConversations) ListMessages(ctx context.Context, conversationID string) ([]models.Message, error) {
	return f.messages[conversationID], nil
}

type fakeAudit struct {
	records []*models.AuditRecord
}

func (f *fakeAudit) Record(ctx context.Context, rec *models.AuditRecord) error {
	f.records = append(f.records, rec)
	return nil
}

func (f *fakeAudit) Get(ctx context.Context, requestID string) (*models.AuditRecord, error) {
	for _, rec := range f.records {
		if rec.RequestID == requestID {
			return rec, nil
		}
	}
	return nil, errs.ErrNotFound
}

type fakeCatalog struct {
	files []tools.FileSummary
}

func (f *fakeCatalog) ListFiles(ctx context.Context, userID string) ([]tools.FileSummary, error) {
	return f.files, nil
}

type fakeStore struct{}

func (fakeStore) Aggregate(ctx context.Context, collection string, pipeline []any) ([]store.Document, error) {
	return nil, nil
}

func (fakeStore) Count(ctx context.Context, collection string, filter any) (int64, error) {
	return 0, nil
}

func (fakeStore) FindOne(ctx context.Context, collection string, filter any, projection any) (store.Document, error) {
	return nil, nil
}

func (fakeStore) UpdateOne(ctx context.Context, collection string, filter any, update any, upsert bool) (store.UpdateAck, error) {
	return store.UpdateAck{}, nil
}

func newTestServer(result *agent.ExecutionResult, err error) (*Server, *fakeAudit) {
	audit := &fakeAudit{}
	s := NewServer(
		agent.NewBaseAgent(&fakeController{result: result, err: err}),
		agent.NewProviderGroup(nil, nil, nil),
		nil,
		newFakeConversations(),
		audit,
		audit,
		fakeStore{},
		&fakeCatalog{},
		agent.ResolvedAgentConfig{}.Normalized(),
		8,
	)
	return s, audit
}
