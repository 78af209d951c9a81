package http

import (
	"net/http"
	"reflect"
	"testing"
)

func TestCreateGroup(t *testing.T) {
	env := newTestEnv(t, nil)
	token := env.login(t, "testuser")

	resp := env.do(t, http.MethodPost, "/api/groups", token, CreateGroupRequest{Name: "my-test-group"})
	expectStatus(t, resp, http.StatusCreated)

	group := decode[GroupResponse](t, resp)
	if group.Name != "my-test-group" || group.CreatedBy != "testuser" {
		t.Errorf("unexpected group: %+v", group)
	}
	if !reflect.DeepEqual(group.Members, []string{"testuser"}) {
		t.Errorf("creator should be the only member, got %v", group.Members)
	}

	// Without token
	resp = env.do(t, http.MethodPost, "/api/groups", "", CreateGroupRequest{Name: "should-fail"})
	expectStatus(t, resp, http.StatusUnauthorized)

	// Duplicate group name
	other := env.login(t, "other")
	resp = env.do(t, http.MethodPost, "/api/groups", other, CreateGroupRequest{Name: "my-test-group"})
	expectStatus(t, resp, http.StatusConflict)

	// Members unchanged by the failed create
	resp = env.do(t, http.MethodGet, "/api/groups/my-test-group", other, nil)
	expectStatus(t, resp, http.StatusOK)
	if got := decode[GroupResponse](t, resp); !reflect.DeepEqual(got.Members, []string{"testuser"}) {
		t.Errorf("members changed by duplicate create: %v", got.Members)
	}

	resp = env.do(t, http.MethodPost, "/api/groups", token, CreateGroupRequest{Name: "   "})
	expectStatus(t, resp, http.StatusBadRequest)

	resp = env.do(t, http.MethodPost, "/api/groups", token, CreateGroupRequest{Name: "a/b"})
	expectStatus(t, resp, http.StatusBadRequest)
}

func TestGroupMembershipAndMessages(t *testing.T) {
	env := newTestEnv(t, nil)
	alice := env.login(t, "alice")
	bob := env.login(t, "bob")
	carol := env.login(t, "carol")

	resp := env.do(t, http.MethodPost, "/api/groups", alice, CreateGroupRequest{Name: "team"})
	expectStatus(t, resp, http.StatusCreated)

	// Outsiders cannot post, read or invite.
	resp = env.do(t, http.MethodPost, "/api/groups/team/messages", bob, SendMessageRequest{Text: "hi"})
	expectStatus(t, resp, http.StatusForbidden)
	resp = env.do(t, http.MethodGet, "/api/groups/team/messages", bob, nil)
	expectStatus(t, resp, http.StatusForbidden)
	resp = env.do(t, http.MethodPost, "/api/groups/team/members", bob, AddMemberRequest{Username: "carol"})
	expectStatus(t, resp, http.StatusForbidden)

	// Self-join with an empty body, twice.
	resp = env.do(t, http.MethodPost, "/api/groups/team/members", bob, nil)
	expectStatus(t, resp, http.StatusOK)
	resp = env.do(t, http.MethodPost, "/api/groups/team/members", bob, AddMemberRequest{})
	expectStatus(t, resp, http.StatusOK)
	if got := decode[GroupResponse](t, resp); !reflect.DeepEqual(got.Members, []string{"alice", "bob"}) {
		t.Fatalf("join must be idempotent, got %v", got.Members)
	}

	resp = env.do(t, http.MethodPost, "/api/groups/team/members", bob, AddMemberRequest{Username: "carol"})
	expectStatus(t, resp, http.StatusOK)
	resp = env.do(t, http.MethodPost, "/api/groups/team/members", bob, AddMemberRequest{Username: "ghost"})
	expectStatus(t, resp, http.StatusNotFound)

	resp = env.do(t, http.MethodPost, "/api/groups/team/messages", carol, SendMessageRequest{Text: "hello team"})
	expectStatus(t, resp, http.StatusCreated)
	msg := decode[MessageResponse](t, resp)
	if !msg.IsGroup || msg.Receiver != "team" {
		t.Fatalf("unexpected group message: %+v", msg)
	}

	// A direct message must not leak into the group history.
	resp = env.do(t, http.MethodPost, "/api/direct/bob/messages", alice, SendMessageRequest{Text: "psst"})
	expectStatus(t, resp, http.StatusCreated)

	resp = env.do(t, http.MethodGet, "/api/groups/team/messages", alice, nil)
	expectStatus(t, resp, http.StatusOK)
	history := decode[HistoryResponse](t, resp)
	if len(history.Messages) != 1 || history.Messages[0].Text != "hello team" {
		t.Fatalf("unexpected group history: %+v", history)
	}

	resp = env.do(t, http.MethodGet, "/api/groups", carol, nil)
	expectStatus(t, resp, http.StatusOK)
	if got := decode[GroupsResponse](t, resp); !reflect.DeepEqual(got.Groups, []string{"team"}) {
		t.Fatalf("unexpected groups: %v", got.Groups)
	}
}

func TestListGroupsEmpty(t *testing.T) {
	env := newTestEnv(t, nil)
	token := env.login(t, "loner")

	resp := env.do(t, http.MethodGet, "/api/groups", token, nil)
	expectStatus(t, resp, http.StatusOK)
	if resp.Body.String() != `{"groups":[]}` {
		t.Fatalf("expected empty list, got %s", resp.Body.String())
	}
}

func TestUnknownGroup(t *testing.T) {
	env := newTestEnv(t, nil)
	token := env.login(t, "alice")

	for _, tt := range []struct {
		method string
		path   string
		body   any
	}{
		{http.MethodGet, "/api/groups/ghost", nil},
		{http.MethodPost, "/api/groups/ghost/members", nil},
		{http.MethodPost, "/api/groups/ghost/messages", SendMessageRequest{Text: "hi"}},
		{http.MethodGet, "/api/groups/ghost/messages", nil},
	} {
		resp := env.do(t, tt.method, tt.path, token, tt.body)
		expectStatus(t, resp, http.StatusNotFound)
	}
}
