// Package storetest holds the behavioural tests every store.Store implementation must pass.
package storetest

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"

	"github.com/vovakirdan/wizzychat/internal/store"
)

// Factory opens a fresh, empty store for a single test.
type Factory func(t *testing.T) store.Store

// Run executes the full suite against stores produced by newStore.
func Run(t *testing.T, newStore Factory) {
	t.Helper()

	tests := []struct {
		name string
		fn   func(t *testing.T, s store.Store)
	}{
		{"DuplicateUsernameKeepsFirst", testDuplicateUsername},
		{"UsernamesAreCaseSensitive", testUsernameCase},
		{"GetUnknownUser", testGetUnknownUser},
		{"PresenceToggle", testPresenceToggle},
		{"ListOnlineOrdering", testListOnlineOrdering},
		{"SetOnlineUnknownUser", testSetOnlineUnknownUser},
		{"DirectHistorySymmetricAndOrdered", testDirectHistory},
		{"HistoryCursor", testHistoryCursor},
		{"DirectAndGroupDoNotMix", testNoCrossContamination},
		{"GroupLifecycle", testGroupLifecycle},
		{"DuplicateGroupKeepsMembers", testDuplicateGroup},
		{"UnknownGroup", testUnknownGroup},
		{"ConcurrentAppends", testConcurrentAppends},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := newStore(t)
			tt.fn(t, s)
		})
	}
}

func mustCreateUser(t *testing.T, s store.Store, username string) {
	t.Helper()
	if _, err := s.CreateUser(context.Background(), username, "hash-"+username); err != nil {
		t.Fatalf("create user %s: %v", username, err)
	}
}

func mustAppend(t *testing.T, s store.Store, sender, receiver, text string, isGroup bool) *store.Message {
	t.Helper()
	msg, err := s.AppendMessage(context.Background(), sender, receiver, text, isGroup)
	if err != nil {
		t.Fatalf("append message: %v", err)
	}
	return msg
}

func texts(msgs []*store.Message) []string {
	out := make([]string, 0, len(msgs))
	for _, m := range msgs {
		out = append(out, m.Text)
	}
	return out
}

func equalStrings(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

func testDuplicateUsername(t *testing.T, s store.Store) {
	ctx := context.Background()

	user, err := s.CreateUser(ctx, "alice", "first")
	if err != nil {
		t.Fatalf("create user: %v", err)
	}
	if user.Username != "alice" || user.Online {
		t.Fatalf("unexpected user: %+v", user)
	}
	if user.CreatedAt.IsZero() {
		t.Fatalf("expected created_at to be set")
	}

	if _, err := s.CreateUser(ctx, "alice", "second"); !errors.Is(err, store.ErrUsernameTaken) {
		t.Fatalf("expected ErrUsernameTaken, got %v", err)
	}

	got, err := s.GetUser(ctx, "alice")
	if err != nil {
		t.Fatalf("get user: %v", err)
	}
	if got.PasswordHash != "first" {
		t.Fatalf("expected first registration to be kept, got hash %q", got.PasswordHash)
	}
}

func testUsernameCase(t *testing.T, s store.Store) {
	mustCreateUser(t, s, "alice")
	mustCreateUser(t, s, "Alice")

	got, err := s.GetUser(context.Background(), "Alice")
	if err != nil {
		t.Fatalf("get user: %v", err)
	}
	if got.PasswordHash != "hash-Alice" {
		t.Fatalf("expected hash-Alice, got %q", got.PasswordHash)
	}
}

func testGetUnknownUser(t *testing.T, s store.Store) {
	if _, err := s.GetUser(context.Background(), "ghost"); !errors.Is(err, store.ErrUserNotFound) {
		t.Fatalf("expected ErrUserNotFound, got %v", err)
	}
}

func testPresenceToggle(t *testing.T, s store.Store) {
	ctx := context.Background()
	mustCreateUser(t, s, "alice")
	mustCreateUser(t, s, "bob")

	if err := s.SetOnline(ctx, "alice", true); err != nil {
		t.Fatalf("set online: %v", err)
	}
	online, err := s.ListOnline(ctx, "bob")
	if err != nil {
		t.Fatalf("list online: %v", err)
	}
	if !equalStrings(online, []string{"alice"}) {
		t.Fatalf("expected [alice], got %v", online)
	}

	// The excluded user never sees themselves.
	online, err = s.ListOnline(ctx, "alice")
	if err != nil {
		t.Fatalf("list online: %v", err)
	}
	if len(online) != 0 {
		t.Fatalf("expected no users, got %v", online)
	}

	// Re-asserting online keeps a single entry.
	if err := s.SetOnline(ctx, "alice", true); err != nil {
		t.Fatalf("set online: %v", err)
	}
	online, _ = s.ListOnline(ctx, "bob")
	if len(online) != 1 {
		t.Fatalf("expected exactly one online user, got %v", online)
	}

	if err := s.SetOnline(ctx, "alice", false); err != nil {
		t.Fatalf("set offline: %v", err)
	}
	online, err = s.ListOnline(ctx, "bob")
	if err != nil {
		t.Fatalf("list online: %v", err)
	}
	if len(online) != 0 {
		t.Fatalf("expected no users after logout, got %v", online)
	}

	user, err := s.GetUser(ctx, "alice")
	if err != nil {
		t.Fatalf("get user: %v", err)
	}
	if user.Online {
		t.Fatalf("expected alice offline")
	}
}

func testListOnlineOrdering(t *testing.T, s store.Store) {
	ctx := context.Background()
	for _, name := range []string{"carol", "Éb", "bob", "alice", "éa", "Alice", "Dave", "me"} {
		mustCreateUser(t, s, name)
		if err := s.SetOnline(ctx, name, true); err != nil {
			t.Fatalf("set online %s: %v", name, err)
		}
	}

	online, err := s.ListOnline(ctx, "me")
	if err != nil {
		t.Fatalf("list online: %v", err)
	}
	// Case folding is Unicode-aware: "éa" sorts before "Éb".
	expected := []string{"Alice", "alice", "bob", "carol", "Dave", "éa", "Éb"}
	if !equalStrings(online, expected) {
		t.Fatalf("expected %v, got %v", expected, online)
	}
}

func testSetOnlineUnknownUser(t *testing.T, s store.Store) {
	ctx := context.Background()
	if err := s.SetOnline(ctx, "ghost", true); err != nil {
		t.Fatalf("expected no error for unknown user, got %v", err)
	}
	online, err := s.ListOnline(ctx, "")
	if err != nil {
		t.Fatalf("list online: %v", err)
	}
	if len(online) != 0 {
		t.Fatalf("unknown user must not appear online, got %v", online)
	}
	if _, err := s.GetUser(ctx, "ghost"); !errors.Is(err, store.ErrUserNotFound) {
		t.Fatalf("SetOnline must not create users, got %v", err)
	}
}

func testDirectHistory(t *testing.T, s store.Store) {
	ctx := context.Background()

	mustAppend(t, s, "alice", "bob", "m1", false)
	mustAppend(t, s, "bob", "alice", "m2", false)
	mustAppend(t, s, "alice", "carol", "other pair", false)
	mustAppend(t, s, "alice", "bob", "m3", false)

	ab, err := s.DirectHistory(ctx, "alice", "bob", 0)
	if err != nil {
		t.Fatalf("direct history: %v", err)
	}
	ba, err := s.DirectHistory(ctx, "bob", "alice", 0)
	if err != nil {
		t.Fatalf("direct history: %v", err)
	}

	expected := []string{"m1", "m2", "m3"}
	if !equalStrings(texts(ab), expected) {
		t.Fatalf("expected %v, got %v", expected, texts(ab))
	}
	if len(ab) != len(ba) {
		t.Fatalf("history not symmetric: %d vs %d", len(ab), len(ba))
	}
	for i := range ab {
		if ab[i].ID != ba[i].ID {
			t.Fatalf("history not symmetric at %d: %d vs %d", i, ab[i].ID, ba[i].ID)
		}
		if i > 0 && ab[i].ID <= ab[i-1].ID {
			t.Fatalf("ids not increasing: %d after %d", ab[i].ID, ab[i-1].ID)
		}
	}
	if ab[0].Sender != "alice" || ab[0].Receiver != "bob" || ab[0].IsGroup {
		t.Fatalf("unexpected first message: %+v", ab[0])
	}
	if ab[0].SentAt.IsZero() {
		t.Fatalf("expected sent_at to be set")
	}

	empty, err := s.DirectHistory(ctx, "bob", "carol", 0)
	if err != nil {
		t.Fatalf("direct history: %v", err)
	}
	if len(empty) != 0 {
		t.Fatalf("expected empty history, got %v", texts(empty))
	}
}

func testHistoryCursor(t *testing.T, s store.Store) {
	ctx := context.Background()

	first := mustAppend(t, s, "alice", "bob", "old", false)
	mustAppend(t, s, "bob", "alice", "new", false)
	g1 := mustAppend(t, s, "alice", "team", "g-old", true)
	mustAppend(t, s, "bob", "team", "g-new", true)

	direct, err := s.DirectHistory(ctx, "alice", "bob", first.ID)
	if err != nil {
		t.Fatalf("direct history: %v", err)
	}
	if !equalStrings(texts(direct), []string{"new"}) {
		t.Fatalf("expected [new], got %v", texts(direct))
	}

	group, err := s.GroupHistory(ctx, "team", g1.ID)
	if err != nil {
		t.Fatalf("group history: %v", err)
	}
	if !equalStrings(texts(group), []string{"g-new"}) {
		t.Fatalf("expected [g-new], got %v", texts(group))
	}
}

func testNoCrossContamination(t *testing.T, s store.Store) {
	ctx := context.Background()

	// A group named like a user must not leak into direct history and vice versa.
	var direct, group []string
	for i := 0; i < 5; i++ {
		d := fmt.Sprintf("d%d", i)
		mustAppend(t, s, "alice", "bob", d, false)
		direct = append(direct, d)

		g := fmt.Sprintf("g%d", i)
		mustAppend(t, s, "alice", "bob", g, true)
		group = append(group, g)
	}

	gotDirect, err := s.DirectHistory(ctx, "alice", "bob", 0)
	if err != nil {
		t.Fatalf("direct history: %v", err)
	}
	if !equalStrings(texts(gotDirect), direct) {
		t.Fatalf("expected %v, got %v", direct, texts(gotDirect))
	}

	gotGroup, err := s.GroupHistory(ctx, "bob", 0)
	if err != nil {
		t.Fatalf("group history: %v", err)
	}
	if !equalStrings(texts(gotGroup), group) {
		t.Fatalf("expected %v, got %v", group, texts(gotGroup))
	}
	for _, m := range gotGroup {
		if !m.IsGroup {
			t.Fatalf("direct message leaked into group history: %+v", m)
		}
	}
}

func testGroupLifecycle(t *testing.T, s store.Store) {
	ctx := context.Background()

	group, err := s.CreateGroup(ctx, "g", "alice")
	if err != nil {
		t.Fatalf("create group: %v", err)
	}
	if group.Name != "g" || group.CreatedBy != "alice" || !equalStrings(group.Members, []string{"alice"}) {
		t.Fatalf("unexpected group: %+v", group)
	}

	groups, err := s.GroupsFor(ctx, "alice")
	if err != nil {
		t.Fatalf("groups for alice: %v", err)
	}
	if !equalStrings(groups, []string{"g"}) {
		t.Fatalf("expected [g], got %v", groups)
	}

	if err := s.AddMember(ctx, "g", "bob"); err != nil {
		t.Fatalf("add member: %v", err)
	}
	if err := s.AddMember(ctx, "g", "bob"); err != nil {
		t.Fatalf("second add member must be idempotent, got %v", err)
	}

	groups, err = s.GroupsFor(ctx, "bob")
	if err != nil {
		t.Fatalf("groups for bob: %v", err)
	}
	if !equalStrings(groups, []string{"g"}) {
		t.Fatalf("expected [g], got %v", groups)
	}

	got, err := s.GetGroup(ctx, "g")
	if err != nil {
		t.Fatalf("get group: %v", err)
	}
	if !equalStrings(got.Members, []string{"alice", "bob"}) {
		t.Fatalf("expected members [alice bob], got %v", got.Members)
	}

	if _, err := s.CreateGroup(ctx, "a-first", "bob"); err != nil {
		t.Fatalf("create group: %v", err)
	}
	groups, err = s.GroupsFor(ctx, "bob")
	if err != nil {
		t.Fatalf("groups for bob: %v", err)
	}
	if !equalStrings(groups, []string{"a-first", "g"}) {
		t.Fatalf("expected sorted [a-first g], got %v", groups)
	}

	none, err := s.GroupsFor(ctx, "carol")
	if err != nil {
		t.Fatalf("groups for carol: %v", err)
	}
	if len(none) != 0 {
		t.Fatalf("expected no groups, got %v", none)
	}
}

func testDuplicateGroup(t *testing.T, s store.Store) {
	ctx := context.Background()

	if _, err := s.CreateGroup(ctx, "g", "alice"); err != nil {
		t.Fatalf("create group: %v", err)
	}
	if _, err := s.CreateGroup(ctx, "g", "bob"); !errors.Is(err, store.ErrGroupNameTaken) {
		t.Fatalf("expected ErrGroupNameTaken, got %v", err)
	}

	got, err := s.GetGroup(ctx, "g")
	if err != nil {
		t.Fatalf("get group: %v", err)
	}
	if got.CreatedBy != "alice" || !equalStrings(got.Members, []string{"alice"}) {
		t.Fatalf("group changed by failed creation: %+v", got)
	}
}

func testUnknownGroup(t *testing.T, s store.Store) {
	ctx := context.Background()

	if err := s.AddMember(ctx, "ghost", "alice"); !errors.Is(err, store.ErrNoSuchGroup) {
		t.Fatalf("expected ErrNoSuchGroup, got %v", err)
	}
	if _, err := s.GetGroup(ctx, "ghost"); !errors.Is(err, store.ErrNoSuchGroup) {
		t.Fatalf("expected ErrNoSuchGroup, got %v", err)
	}
	groups, err := s.GroupsFor(ctx, "alice")
	if err != nil {
		t.Fatalf("groups for: %v", err)
	}
	if len(groups) != 0 {
		t.Fatalf("failed add must not create membership, got %v", groups)
	}
}

func testConcurrentAppends(t *testing.T, s store.Store) {
	ctx := context.Background()

	const (
		writers   = 8
		perWriter = 25
	)

	var wg sync.WaitGroup
	errCh := make(chan error, writers)
	for w := 0; w < writers; w++ {
		wg.Add(1)
		go func(w int) {
			defer wg.Done()
			for i := 0; i < perWriter; i++ {
				if _, err := s.AppendMessage(ctx, "alice", "bob", fmt.Sprintf("w%d-%d", w, i), false); err != nil {
					errCh <- err
					return
				}
			}
		}(w)
	}
	wg.Wait()
	close(errCh)
	for err := range errCh {
		t.Fatalf("concurrent append: %v", err)
	}

	history, err := s.DirectHistory(ctx, "alice", "bob", 0)
	if err != nil {
		t.Fatalf("direct history: %v", err)
	}
	if len(history) != writers*perWriter {
		t.Fatalf("expected %d messages, got %d", writers*perWriter, len(history))
	}
	for i := 1; i < len(history); i++ {
		if history[i].ID <= history[i-1].ID {
			t.Fatalf("ids not strictly increasing at %d", i)
		}
	}
}
