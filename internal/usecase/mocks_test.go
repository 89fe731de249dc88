// File: internal/usecase/mocks_test.go
package usecase

import (
	"context"
	"math/big"
	"sync"

	"github.com/rs/zerolog"

	"telegram-one-bot/internal/domain"
	"telegram-one-bot/internal/domain/model"
	"telegram-one-bot/internal/domain/ports/adapter"
)

func nopLogger() *zerolog.Logger {
	l := zerolog.Nop()
	return &l
}

// memSessions is a small in-memory SessionStore used by unit tests.
type memSessions struct {
	mu    sync.Mutex
	store map[string]*model.Session
}

func newMemSessions() *memSessions {
	return &memSessions{store: make(map[string]*model.Session)}
}

func (m *memSessions) Get(accountID string) *model.Session {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.store[accountID]
	if !ok {
		s = model.NewSession(accountID, "gpt-4o")
		m.store[accountID] = s
	}
	return s
}

func (m *memSessions) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.store)
}

// fakeChain returns a fixed on-chain balance for every derived address.
type fakeChain struct {
	atto *big.Int
	err  error
}

func (f *fakeChain) GetBalance(ctx context.Context, address string) (model.Balance, error) {
	if f.err != nil {
		return model.Balance{}, f.err
	}
	if f.atto == nil {
		return model.ZeroBalance(), nil
	}
	return model.Balance{Atto: new(big.Int).Set(f.atto)}, nil
}

func (f *fakeChain) DeriveAddress(accountID string) string { return "0x" + accountID }

// fakeCredits is an in-memory credits ledger with atomic debit semantics.
type fakeCredits struct {
	mu         sync.Mutex
	balances   map[string]*big.Int
	debitCalls int
	debitErr   error
}

func newFakeCredits() *fakeCredits {
	return &fakeCredits{balances: make(map[string]*big.Int)}
}

func (f *fakeCredits) grant(accountID string, atto *big.Int) {
	f.mu.Lock()
	defer f.mu.Unlock()
	cur, ok := f.balances[accountID]
	if !ok {
		cur = big.NewInt(0)
	}
	f.balances[accountID] = new(big.Int).Add(cur, atto)
}

func (f *fakeCredits) GetCredits(ctx context.Context, accountID string) (model.Balance, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	b, ok := f.balances[accountID]
	if !ok {
		return model.Balance{}, domain.ErrNotFound
	}
	return model.Balance{Atto: new(big.Int).Set(b)}, nil
}

func (f *fakeCredits) Debit(ctx context.Context, accountID string, amount *big.Int) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.debitCalls++
	if f.debitErr != nil {
		return f.debitErr
	}
	cur, ok := f.balances[accountID]
	if !ok || cur.Cmp(amount) < 0 {
		return domain.ErrInsufficientCredits
	}
	f.balances[accountID] = new(big.Int).Sub(cur, amount)
	return nil
}

func (f *fakeCredits) Grant(ctx context.Context, accountID string, amount *big.Int) error {
	f.grant(accountID, amount)
	return nil
}

func (f *fakeCredits) TotalCredits(ctx context.Context) (model.Balance, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	total := big.NewInt(0)
	for _, b := range f.balances {
		total.Add(total, b)
	}
	return model.Balance{Atto: total}, nil
}

// fakeFeed reports a fixed ONE/USD rate.
type fakeFeed struct {
	rate float64
	err  error
}

func (f *fakeFeed) ONEUSD(ctx context.Context) (float64, error) {
	if f.err != nil {
		return 0, f.err
	}
	return f.rate, nil
}

type sentMessage struct {
	chatID int64
	text   string
	opts   *adapter.SendOptions
}

type editedMessage struct {
	chatID    int64
	messageID int
	text      string
}

// fakeMessenger records every outbound call. replyErrs is consumed one error
// per Reply call; nil entries mean success.
type fakeMessenger struct {
	mu        sync.Mutex
	sent      []sentMessage
	edits     []editedMessage
	photos    []string
	audio     []string
	typing    int
	replyErrs []error
	editErr   error
	nextID    int
}

func (f *fakeMessenger) Reply(ctx context.Context, chatID int64, text string, opts *adapter.SendOptions) (int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if len(f.replyErrs) > 0 {
		err := f.replyErrs[0]
		f.replyErrs = f.replyErrs[1:]
		if err != nil {
			return 0, err
		}
	}
	f.sent = append(f.sent, sentMessage{chatID: chatID, text: text, opts: opts})
	f.nextID++
	return f.nextID, nil
}

func (f *fakeMessenger) EditMessageText(ctx context.Context, chatID int64, messageID int, text string, opts *adapter.SendOptions) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.editErr != nil {
		return f.editErr
	}
	f.edits = append(f.edits, editedMessage{chatID: chatID, messageID: messageID, text: text})
	return nil
}

func (f *fakeMessenger) SendTyping(ctx context.Context, chatID int64) {
	f.mu.Lock()
	f.typing++
	f.mu.Unlock()
}

func (f *fakeMessenger) SendPhoto(ctx context.Context, chatID int64, url, caption string) error {
	f.mu.Lock()
	f.photos = append(f.photos, url)
	f.mu.Unlock()
	return nil
}

func (f *fakeMessenger) SendAudio(ctx context.Context, chatID int64, data []byte, filename string) error {
	f.mu.Lock()
	f.audio = append(f.audio, filename)
	f.mu.Unlock()
	return nil
}

func (f *fakeMessenger) sentTexts() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]string, len(f.sent))
	for i, m := range f.sent {
		out[i] = m.text
	}
	return out
}

func (f *fakeMessenger) lastSent() (sentMessage, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if len(f.sent) == 0 {
		return sentMessage{}, false
	}
	return f.sent[len(f.sent)-1], true
}

// fakeProvider returns a canned completion and records what it was asked.
type fakeProvider struct {
	mu      sync.Mutex
	reply   string
	usage   int
	price   float64
	err     error
	prompts []string
	models  []string
	chunks  []string // streamed in order before the final reply
}

func (f *fakeProvider) record(conversation []model.ChatMessage, modelName string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if len(conversation) > 0 {
		f.prompts = append(f.prompts, conversation[len(conversation)-1].Content)
	}
	f.models = append(f.models, modelName)
}

func (f *fakeProvider) result(modelName string) model.CompletionResult {
	return model.CompletionResult{
		Completion: &model.ChatMessage{Role: model.RoleAssistant, Content: f.reply, Model: modelName},
		Usage:      f.usage,
		PriceCents: f.price,
	}
}

func (f *fakeProvider) ChatCompletion(ctx context.Context, conversation []model.ChatMessage, modelName string) (model.CompletionResult, error) {
	if f.err != nil {
		return model.CompletionResult{}, f.err
	}
	f.record(conversation, modelName)
	return f.result(modelName), nil
}

func (f *fakeProvider) ChatStreamCompletion(ctx context.Context, conversation []model.ChatMessage, modelName string, onDelta func(partial string)) (model.CompletionResult, error) {
	if f.err != nil {
		return model.CompletionResult{}, f.err
	}
	f.record(conversation, modelName)
	acc := ""
	for _, c := range f.chunks {
		acc += c
		onDelta(acc)
	}
	return f.result(modelName), nil
}

func (f *fakeProvider) askedPrompts() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]string, len(f.prompts))
	copy(out, f.prompts)
	return out
}

// fakeTokenizer reports a fixed token count per call.
type fakeTokenizer struct{ tokens int }

func (f *fakeTokenizer) CountTokens(modelName, text string) int { return f.tokens }

// fakeImages returns canned image URLs.
type fakeImages struct {
	urls []string
	err  error
}

func (f *fakeImages) GenerateImages(ctx context.Context, prompt string, numImages int, size string) ([]string, error) {
	if f.err != nil {
		return nil, f.err
	}
	return f.urls, nil
}

// fakeRegistry returns canned relay responses.
type fakeRegistry struct {
	status adapter.DomainStatus
	cert   adapter.CertStatus
	nft    adapter.NFTMeta
	err    error
}

func (f *fakeRegistry) CheckDomain(ctx context.Context, name string) (adapter.DomainStatus, error) {
	if f.err != nil {
		return adapter.DomainStatus{}, f.err
	}
	return f.status, nil
}

func (f *fakeRegistry) CertInfo(ctx context.Context, name string) (adapter.CertStatus, error) {
	if f.err != nil {
		return adapter.CertStatus{}, f.err
	}
	return f.cert, nil
}

func (f *fakeRegistry) NFTInfo(ctx context.Context, name string) (adapter.NFTMeta, error) {
	if f.err != nil {
		return adapter.NFTMeta{}, f.err
	}
	return f.nft, nil
}

// fakeSynth records what it was asked to voice.
type fakeSynth struct {
	mu    sync.Mutex
	audio []byte
	err   error
	texts []string
	voice adapter.VoiceParams
}

func (f *fakeSynth) Synthesize(ctx context.Context, text string, params adapter.VoiceParams) ([]byte, error) {
	if f.err != nil {
		return nil, f.err
	}
	f.mu.Lock()
	f.texts = append(f.texts, text)
	f.voice = params
	f.mu.Unlock()
	return f.audio, nil
}

// fakeTranscriber returns a canned transcript.
type fakeTranscriber struct {
	transcript adapter.Transcript
	err        error
}

func (f *fakeTranscriber) Transcribe(ctx context.Context, audio []byte, filename string) (adapter.Transcript, error) {
	if f.err != nil {
		return adapter.Transcript{}, f.err
	}
	return f.transcript, nil
}

// newTestPayments wires a payments use case over the given fakes with no
// whitelists and a neutral price adjustment.
func newTestPayments(chain *fakeChain, credits *fakeCredits, feed *fakeFeed) *PaymentsUseCase {
	return NewPaymentsUseCase(chain, credits, feed, nil, nil, nil, 1, 0, nopLogger())
}

func testCaller() Caller {
	return Caller{AccountID: "100", ChatID: 100, UserID: 7, Username: "alice", MessageID: 42}
}
