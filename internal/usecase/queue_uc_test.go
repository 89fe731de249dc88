// File: internal/usecase/queue_uc_test.go
package usecase

import (
	"context"
	"errors"
	"math/big"
	"strings"
	"testing"
	"unicode/utf8"

	"telegram-one-bot/internal/domain"
	"telegram-one-bot/internal/domain/model"
	"telegram-one-bot/internal/domain/ports/adapter"
)

// richCredits grants enough to never hit the balance gate: 1000 ONE at a
// 0.01 USD rate is 1000 cents.
func richCredits(accountID string) *fakeCredits {
	credits := newFakeCredits()
	credits.grant(accountID, model.AttoFromONE(1000))
	return credits
}

func newTestQueue(msgr *fakeMessenger, provider *fakeProvider, credits *fakeCredits) (*CompletionQueue, *memSessions) {
	sessions := newMemSessions()
	payments := newTestPayments(&fakeChain{}, credits, &fakeFeed{rate: 0.01})
	errs := NewErrorHandler(msgr, nopLogger())
	q := NewCompletionQueue(sessions, provider, &fakeTokenizer{tokens: 10}, payments, msgr, errs, false, nopLogger())
	return q, sessions
}

func TestDrainProcessesInOrder(t *testing.T) {
	caller := testCaller()
	msgr := &fakeMessenger{}
	provider := &fakeProvider{reply: "answer", usage: 100, price: 0.5}
	q, sessions := newTestQueue(msgr, provider, richCredits(caller.AccountID))

	sess := sessions.Get(caller.AccountID)
	for _, content := range []string{"one", "two", "three"} {
		sess.Enqueue(model.QueuedRequest{ID: content, Model: "gpt-4o", Content: content})
	}
	q.drain(context.Background(), caller, sess, false)

	got := provider.askedPrompts()
	want := []string{"one", "two", "three"}
	if len(got) != len(want) {
		t.Fatalf("provider saw %d prompts, want %d", len(got), len(want))
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("prompt[%d] = %q, want %q", i, got[i], want[i])
		}
	}
	if sess.IsProcessing() {
		t.Error("session still marked processing after drain")
	}

	conv := sess.Snapshot()
	if len(conv) != 6 {
		t.Fatalf("conversation has %d messages, want 6", len(conv))
	}
	for i, msg := range conv {
		wantRole := model.RoleUser
		if i%2 == 1 {
			wantRole = model.RoleAssistant
		}
		if msg.Role != wantRole {
			t.Errorf("conversation[%d].Role = %q, want %q", i, msg.Role, wantRole)
		}
	}
}

func TestEnqueueWhileSuspended(t *testing.T) {
	caller := testCaller()
	msgr := &fakeMessenger{}
	q, sessions := newTestQueue(msgr, &fakeProvider{reply: "x"}, richCredits(caller.AccountID))
	q.errs.setSuspended(true)

	err := q.Enqueue(context.Background(), caller, "gpt-4o", "hello", false)
	if !errors.Is(err, domain.ErrBotSuspended) {
		t.Fatalf("Enqueue error = %v, want ErrBotSuspended", err)
	}
	if n := sessions.Get(caller.AccountID).QueueLen(); n != 0 {
		t.Errorf("queue length = %d, want 0", n)
	}
	last, ok := msgr.lastSent()
	if !ok || last.text != suspendedText {
		t.Errorf("suspension reply = %q", last.text)
	}
}

func TestBalanceGateReEvaluatedPerItem(t *testing.T) {
	caller := testCaller()
	msgr := &fakeMessenger{}
	provider := &fakeProvider{reply: "answer", usage: 100, price: 4.0}

	// 5 ONE at 0.01 USD is 5 cents: enough for the first gpt-4o item
	// (min 4 cents), but settlement debits 4 ONE and leaves 1 cent, so the
	// second item must be blocked upfront.
	credits := newFakeCredits()
	credits.grant(caller.AccountID, model.AttoFromONE(5))
	q, sessions := newTestQueue(msgr, provider, credits)

	sess := sessions.Get(caller.AccountID)
	sess.Enqueue(model.QueuedRequest{ID: "a", Model: "gpt-4o", Content: "first"})
	sess.Enqueue(model.QueuedRequest{ID: "b", Model: "gpt-4o", Content: "second"})
	q.drain(context.Background(), caller, sess, false)

	if n := len(provider.askedPrompts()); n != 1 {
		t.Fatalf("provider called %d times, want 1", n)
	}
	last, ok := msgr.lastSent()
	if !ok || !strings.Contains(last.text, "ONE tokens") {
		t.Errorf("expected low balance notice, got %q", last.text)
	}
	if strings.Contains(last.text, "$CREDITS") || strings.Contains(last.text, "$WALLET_ADDRESS") {
		t.Errorf("template variables not substituted: %q", last.text)
	}
}

func TestSettlementDebitsOnce(t *testing.T) {
	caller := testCaller()
	msgr := &fakeMessenger{}
	provider := &fakeProvider{reply: "answer", usage: 100, price: 2.0}
	credits := richCredits(caller.AccountID)
	q, sessions := newTestQueue(msgr, provider, credits)

	sess := sessions.Get(caller.AccountID)
	sess.Enqueue(model.QueuedRequest{ID: "a", Model: "gpt-4o", Content: "hello"})
	q.drain(context.Background(), caller, sess, false)

	if credits.debitCalls != 1 {
		t.Fatalf("debit called %d times, want 1", credits.debitCalls)
	}
	// 2 cents at 0.01 USD/ONE is 2 ONE.
	want := new(big.Int).Sub(model.AttoFromONE(1000), model.AttoFromONE(2))
	got, _ := credits.GetCredits(context.Background(), caller.AccountID)
	if got.Atto.Cmp(want) != 0 {
		t.Errorf("balance after settlement = %s, want %s", got.Atto, want)
	}
}

func TestEmptyPromptStopsDrainPass(t *testing.T) {
	caller := testCaller()
	msgr := &fakeMessenger{}
	provider := &fakeProvider{reply: "answer"}
	q, sessions := newTestQueue(msgr, provider, richCredits(caller.AccountID))

	sess := sessions.Get(caller.AccountID)
	sess.Enqueue(model.QueuedRequest{ID: "a", Model: "gpt-4o", Content: "first"})
	sess.Enqueue(model.QueuedRequest{ID: "b", Model: "gpt-4o", Content: ""})
	sess.Enqueue(model.QueuedRequest{ID: "c", Model: "gpt-4o", Content: "third"})
	q.drain(context.Background(), caller, sess, false)

	if n := len(provider.askedPrompts()); n != 1 {
		t.Errorf("provider called %d times, want 1", n)
	}
	if n := sess.QueueLen(); n != 1 {
		t.Errorf("leftover queue length = %d, want 1", n)
	}
	if sess.IsProcessing() {
		t.Error("processing flag still set after abandoned pass")
	}
	last, ok := msgr.lastSent()
	if !ok || !strings.Contains(last.text, lastReplyText) {
		t.Errorf("empty prompt reply = %q, want last-reply text", last.text)
	}
}

func TestModelAliasResolvedBeforeProviderCall(t *testing.T) {
	caller := testCaller()
	msgr := &fakeMessenger{}
	provider := &fakeProvider{reply: "answer"}
	q, sessions := newTestQueue(msgr, provider, richCredits(caller.AccountID))

	sess := sessions.Get(caller.AccountID)
	sess.Enqueue(model.QueuedRequest{ID: "a", Model: "gpt4o", Content: "hi"})
	q.drain(context.Background(), caller, sess, false)

	if len(provider.models) != 1 || provider.models[0] != "gpt-4o" {
		t.Errorf("provider called with %v, want canonical gpt-4o", provider.models)
	}
}

func TestStreamingEditsAndTokenPricing(t *testing.T) {
	caller := testCaller()
	msgr := &fakeMessenger{}
	full := strings.Repeat("streamed text chunk ", 6) // well past the flush threshold
	provider := &fakeProvider{reply: full, chunks: []string{full}}
	q, sessions := newTestQueue(msgr, provider, richCredits(caller.AccountID))

	sess := sessions.Get(caller.AccountID)
	sess.Enqueue(model.QueuedRequest{ID: "a", Model: "gpt-4o", Content: "hi"})
	q.drain(context.Background(), caller, sess, true)

	if len(msgr.edits) == 0 {
		t.Fatal("streaming produced no message edits")
	}
	final := msgr.edits[len(msgr.edits)-1]
	if final.text != full {
		t.Errorf("final edit = %q, want full completion", final.text)
	}

	// Provider reported no usage, so pricing falls back to token counts:
	// 10 prompt + 10 completion tokens from the test tokenizer.
	usage, priceCents := sess.Reset()
	if usage != 20 {
		t.Errorf("session usage = %d, want 20", usage)
	}
	wantPrice := model.ChatPriceCents(mustChatModel(t, "gpt-4o"), 10, 10)
	if priceCents != wantPrice {
		t.Errorf("session price = %f, want %f", priceCents, wantPrice)
	}
}

func TestProviderErrorWipesConversation(t *testing.T) {
	caller := testCaller()
	msgr := &fakeMessenger{}
	provider := &fakeProvider{err: errors.New("upstream down")}
	q, sessions := newTestQueue(msgr, provider, richCredits(caller.AccountID))

	sess := sessions.Get(caller.AccountID)
	sess.Append(model.ChatMessage{Role: model.RoleUser, Content: "earlier"})
	sess.Enqueue(model.QueuedRequest{ID: "a", Model: "gpt-4o", Content: "hi"})
	q.drain(context.Background(), caller, sess, false)

	if conv := sess.Snapshot(); len(conv) != 0 {
		t.Errorf("conversation not cleared after provider failure: %d messages", len(conv))
	}
	last, ok := msgr.lastSent()
	if !ok || !strings.Contains(last.text, "Error handling your request") {
		t.Errorf("failure reply = %q", last.text)
	}
}

func TestTransportFailureWipesConversation(t *testing.T) {
	caller := testCaller()
	msgr := &fakeMessenger{}
	provider := &fakeProvider{err: &adapter.TransportError{Code: 502, Description: "bad gateway", Method: "sendMessage"}}
	q, sessions := newTestQueue(msgr, provider, richCredits(caller.AccountID))

	sess := sessions.Get(caller.AccountID)
	sess.Append(model.ChatMessage{Role: model.RoleUser, Content: "earlier"})
	sess.Enqueue(model.QueuedRequest{ID: "a", Model: "gpt-4o", Content: "hi"})
	q.drain(context.Background(), caller, sess, false)

	if conv := sess.Snapshot(); len(conv) != 0 {
		t.Errorf("conversation kept %d messages after transport failure", len(conv))
	}
}

// finalTexts returns the last edited text per message id, in first-edit order.
func finalTexts(msgr *fakeMessenger) []string {
	byID := map[int]string{}
	var order []int
	for _, e := range msgr.edits {
		if _, seen := byID[e.messageID]; !seen {
			order = append(order, e.messageID)
		}
		byID[e.messageID] = e.text
	}
	out := make([]string, len(order))
	for i, id := range order {
		out[i] = byID[id]
	}
	return out
}

func TestStreamingRespectsMessageLimit(t *testing.T) {
	cases := []struct {
		name    string
		content string
		pieces  []string
	}{
		{
			"long single line",
			"head\n" + strings.Repeat("x", 9000),
			[]string{
				"head\n" + strings.Repeat("x", 4091),
				strings.Repeat("x", 4096),
				strings.Repeat("x", 813),
			},
		},
		{
			"split lands on a newline",
			strings.Repeat("a", 3000) + "\n" + strings.Repeat("b", 3000),
			[]string{
				strings.Repeat("a", 3000),
				strings.Repeat("b", 3000),
			},
		},
		{
			"multi-byte runes stay whole",
			strings.Repeat("€", 2000),
			[]string{
				strings.Repeat("€", 1365),
				strings.Repeat("€", 635),
			},
		},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			caller := testCaller()
			msgr := &fakeMessenger{}
			provider := &fakeProvider{reply: tc.content, chunks: []string{tc.content}}
			q, sessions := newTestQueue(msgr, provider, richCredits(caller.AccountID))

			sess := sessions.Get(caller.AccountID)
			sess.Enqueue(model.QueuedRequest{ID: "a", Model: "gpt-4o", Content: "hi"})
			q.drain(context.Background(), caller, sess, true)

			for _, e := range msgr.edits {
				if len(e.text) > messageLimit {
					t.Fatalf("edit of %d chars exceeds the %d ceiling", len(e.text), messageLimit)
				}
				if !utf8.ValidString(e.text) {
					t.Fatal("edit split a rune in half")
				}
			}
			got := finalTexts(msgr)
			if len(got) != len(tc.pieces) {
				t.Fatalf("delivered %d messages, want %d", len(got), len(tc.pieces))
			}
			for i := range got {
				if got[i] != tc.pieces[i] {
					t.Errorf("message %d is %d chars, want %d", i, len(got[i]), len(tc.pieces[i]))
				}
			}
		})
	}
}

func mustChatModel(t *testing.T, name string) model.ChatModel {
	t.Helper()
	m, err := model.GetChatModel(name)
	if err != nil {
		t.Fatalf("GetChatModel(%q): %v", name, err)
	}
	return m
}
