package handler

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"testing"

	"github.com/iliyamo/marketplace-api/internal/policy"
	"github.com/iliyamo/marketplace-api/internal/repository"
)

func newChatFixture(t *testing.T) (*ChatHandler, *fakeUserStore, *fakeChatStore, [3]policy.Identity) {
	t.Helper()
	users := newFakeUserStore()
	alice := users.add(repository.User{Name: "Alice", Email: "alice@example.com"})
	bob := users.add(repository.User{Name: "Bob", Email: "bob@example.com"})
	carol := users.add(repository.User{Name: "Carol", Email: "carol@example.com"})
	chats := newFakeChatStore(users)
	h := NewChatHandler(chats, users)
	return h, users, chats, [3]policy.Identity{
		{ID: alice.ID, Name: alice.Name},
		{ID: bob.ID, Name: bob.Name},
		{ID: carol.ID, Name: carol.Name},
	}
}

func TestChatStoreCreates(t *testing.T) {
	h, _, chats, ids := newChatFixture(t)
	alice, bob := ids[0], ids[1]

	body := fmt.Sprintf(`{"user2_id":%d}`, bob.ID)
	c, rec := newTestContext(http.MethodPost, "/v1/chats", body, &alice)
	if err := h.Store(c); err != nil {
		t.Fatal(err)
	}
	if rec.Code != http.StatusCreated {
		t.Fatalf("status = %d, want 201: %s", rec.Code, rec.Body)
	}
	if len(chats.chats) != 1 {
		t.Fatalf("expected one chat, got %d", len(chats.chats))
	}
}

func TestChatStoreRejectsSelf(t *testing.T) {
	h, _, chats, ids := newChatFixture(t)
	alice := ids[0]

	body := fmt.Sprintf(`{"user2_id":%d}`, alice.ID)
	c, rec := newTestContext(http.MethodPost, "/v1/chats", body, &alice)
	if err := h.Store(c); err != nil {
		t.Fatal(err)
	}
	if rec.Code != http.StatusUnprocessableEntity {
		t.Fatalf("status = %d, want 422: %s", rec.Code, rec.Body)
	}
	if len(chats.chats) != 0 {
		t.Error("self-chat must not be persisted")
	}
}

func TestChatStoreRejectsDuplicateBothOrderings(t *testing.T) {
	h, _, chats, ids := newChatFixture(t)
	alice, bob := ids[0], ids[1]

	c, rec := newTestContext(http.MethodPost, "/v1/chats",
		fmt.Sprintf(`{"user2_id":%d}`, bob.ID), &alice)
	if err := h.Store(c); err != nil {
		t.Fatal(err)
	}
	if rec.Code != http.StatusCreated {
		t.Fatalf("first create: status = %d", rec.Code)
	}

	// Same pair again, from either side, is a conflict.
	for _, tc := range []struct {
		caller policy.Identity
		other  uint64
	}{
		{alice, bob.ID},
		{bob, alice.ID},
	} {
		c, rec := newTestContext(http.MethodPost, "/v1/chats",
			fmt.Sprintf(`{"user2_id":%d}`, tc.other), &tc.caller)
		if err := h.Store(c); err != nil {
			t.Fatal(err)
		}
		if rec.Code != http.StatusUnprocessableEntity {
			t.Errorf("duplicate create by %d: status = %d, want 422", tc.caller.ID, rec.Code)
		}
	}
	if len(chats.chats) != 1 {
		t.Errorf("expected one chat to survive, got %d", len(chats.chats))
	}
}

func TestChatStoreRejectsUnknownUser(t *testing.T) {
	h, _, _, ids := newChatFixture(t)
	alice := ids[0]

	c, rec := newTestContext(http.MethodPost, "/v1/chats", `{"user2_id":999}`, &alice)
	if err := h.Store(c); err != nil {
		t.Fatal(err)
	}
	if rec.Code != http.StatusUnprocessableEntity {
		t.Fatalf("status = %d, want 422: %s", rec.Code, rec.Body)
	}
}

func TestChatShowOpaqueForbidden(t *testing.T) {
	h, _, chats, ids := newChatFixture(t)
	alice, bob, carol := ids[0], ids[1], ids[2]
	chat, err := chats.Create(context.Background(), alice.ID, bob.ID)
	if err != nil {
		t.Fatal(err)
	}

	// Non-participant and nonexistent chat must be indistinguishable.
	var bodies [2]string
	for i, tc := range []struct {
		path string
		id   uint64
	}{
		{"existing chat, outsider", chat.ID},
		{"missing chat", 999},
	} {
		c, rec := newTestContext(http.MethodGet, "/v1/chats/x", "", &carol)
		c.SetParamNames("id")
		c.SetParamValues(fmt.Sprint(tc.id))
		if err := h.Show(c); err != nil {
			t.Fatal(err)
		}
		if rec.Code != http.StatusForbidden {
			t.Errorf("%s: status = %d, want 403", tc.path, rec.Code)
		}
		bodies[i] = rec.Body.String()
	}
	if bodies[0] != bodies[1] {
		t.Errorf("responses must match: %q vs %q", bodies[0], bodies[1])
	}
}

func TestChatShowForParticipant(t *testing.T) {
	h, _, chats, ids := newChatFixture(t)
	alice, bob := ids[0], ids[1]
	chat, err := chats.Create(context.Background(), alice.ID, bob.ID)
	if err != nil {
		t.Fatal(err)
	}

	c, rec := newTestContext(http.MethodGet, "/v1/chats/x", "", &bob)
	c.SetParamNames("id")
	c.SetParamValues(fmt.Sprint(chat.ID))
	if err := h.Show(c); err != nil {
		t.Fatal(err)
	}
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200: %s", rec.Code, rec.Body)
	}
	body := decodeBody(rec)
	if _, ok := body["user1"]; !ok {
		t.Error("response should embed participant summaries")
	}
}

func TestChatDestroyRequiresParticipant(t *testing.T) {
	h, _, chats, ids := newChatFixture(t)
	alice, bob, carol := ids[0], ids[1], ids[2]
	chat, err := chats.Create(context.Background(), alice.ID, bob.ID)
	if err != nil {
		t.Fatal(err)
	}

	c, rec := newTestContext(http.MethodDelete, "/v1/chats/x", "", &carol)
	c.SetParamNames("id")
	c.SetParamValues(fmt.Sprint(chat.ID))
	if err := h.Destroy(c); err != nil {
		t.Fatal(err)
	}
	if rec.Code != http.StatusForbidden {
		t.Fatalf("outsider delete: status = %d, want 403", rec.Code)
	}
	if len(chats.chats) != 1 {
		t.Fatal("chat must survive an outsider delete")
	}

	c, rec = newTestContext(http.MethodDelete, "/v1/chats/x", "", &alice)
	c.SetParamNames("id")
	c.SetParamValues(fmt.Sprint(chat.ID))
	if err := h.Destroy(c); err != nil {
		t.Fatal(err)
	}
	if rec.Code != http.StatusNoContent {
		t.Fatalf("participant delete: status = %d, want 204", rec.Code)
	}
	if len(chats.chats) != 0 {
		t.Error("chat should be gone")
	}
}

func TestChatIndexListsOnlyOwn(t *testing.T) {
	h, _, chats, ids := newChatFixture(t)
	alice, bob, carol := ids[0], ids[1], ids[2]
	if _, err := chats.Create(context.Background(), alice.ID, bob.ID); err != nil {
		t.Fatal(err)
	}
	if _, err := chats.Create(context.Background(), bob.ID, carol.ID); err != nil {
		t.Fatal(err)
	}

	c, rec := newTestContext(http.MethodGet, "/v1/chats", "", &alice)
	if err := h.Index(c); err != nil {
		t.Fatal(err)
	}
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	var got []map[string]any
	if err := json.Unmarshal(rec.Body.Bytes(), &got); err != nil {
		t.Fatal(err)
	}
	if len(got) != 1 {
		t.Errorf("alice should see exactly her one chat, got %d", len(got))
	}
}
