package handlers

import (
	"net/http"
	"testing"

	"github.com/google/uuid"

	"github.com/rosterhub/backend/internal/models"
)

func TestResourcesGet_OwnerAndGrantee(t *testing.T) {
	env := setupTestEnv(t)

	owner, ownerToken := createTestUser(t, env.db, "owner@test.com", "password123", models.UserRoleCoach)
	viewer, viewerToken := createTestUser(t, env.db, "viewer@test.com", "password123", models.UserRolePlayer)
	resource := createTestResource(t, env.db, owner, "drills.mp4", false)
	createTestGrant(t, env.db, resource, viewer, models.PermissionView)

	t.Run("owner sees own resource", func(t *testing.T) {
		resp := performJSONRequest(t, env.app, http.MethodGet, "/api/resources/"+resource.ID.String(), nil, authHeaders(ownerToken))
		assertStatus(t, resp, http.StatusOK)
		body := decodeJSONMap(t, resp)
		data := body["data"].(map[string]any)
		if data["name"] != "drills.mp4" {
			t.Errorf("expected resource name, got %v", data["name"])
		}
	})

	t.Run("grantee with view sees the resource", func(t *testing.T) {
		resp := performJSONRequest(t, env.app, http.MethodGet, "/api/resources/"+resource.ID.String(), nil, authHeaders(viewerToken))
		assertStatus(t, resp, http.StatusOK)
	})
}

func TestResourcesGet_DeniedLooksLikeAbsent(t *testing.T) {
	env := setupTestEnv(t)

	owner, _ := createTestUser(t, env.db, "owner@test.com", "password123", models.UserRoleCoach)
	_, strangerToken := createTestUser(t, env.db, "stranger@test.com", "password123", models.UserRolePlayer)
	resource := createTestResource(t, env.db, owner, "private.pdf", false)

	deniedResp := performJSONRequest(t, env.app, http.MethodGet, "/api/resources/"+resource.ID.String(), nil, authHeaders(strangerToken))
	assertStatus(t, deniedResp, http.StatusNotFound)
	deniedBody := decodeJSONMap(t, deniedResp)

	absentResp := performJSONRequest(t, env.app, http.MethodGet, "/api/resources/"+uuid.New().String(), nil, authHeaders(strangerToken))
	assertStatus(t, absentResp, http.StatusNotFound)
	absentBody := decodeJSONMap(t, absentResp)

	// A denied resource and a missing one must be indistinguishable.
	if deniedBody["error"] != absentBody["error"] {
		t.Errorf("denied %q and absent %q responses differ", deniedBody["error"], absentBody["error"])
	}
}

func TestResourcesGet_PublicVisibleToAnyAuthenticated(t *testing.T) {
	env := setupTestEnv(t)

	owner, _ := createTestUser(t, env.db, "owner@test.com", "password123", models.UserRoleCoach)
	_, strangerToken := createTestUser(t, env.db, "stranger@test.com", "password123", models.UserRolePlayer)
	resource := createTestResource(t, env.db, owner, "schedule.pdf", true)

	resp := performJSONRequest(t, env.app, http.MethodGet, "/api/resources/"+resource.ID.String(), nil, authHeaders(strangerToken))
	assertStatus(t, resp, http.StatusOK)
}

func TestResourcesUpdate_LevelEnforcement(t *testing.T) {
	env := setupTestEnv(t)

	owner, _ := createTestUser(t, env.db, "owner@test.com", "password123", models.UserRoleCoach)
	commenter, commenterToken := createTestUser(t, env.db, "commenter@test.com", "password123", models.UserRolePlayer)
	editor, editorToken := createTestUser(t, env.db, "editor@test.com", "password123", models.UserRolePlayer)
	resource := createTestResource(t, env.db, owner, "playbook.pdf", false)
	createTestGrant(t, env.db, resource, commenter, models.PermissionComment)
	createTestGrant(t, env.db, resource, editor, models.PermissionEdit)

	t.Run("comment grant cannot edit", func(t *testing.T) {
		resp := performJSONRequest(t, env.app, http.MethodPut, "/api/resources/"+resource.ID.String(),
			map[string]any{"name": "renamed.pdf"}, authHeaders(commenterToken))
		assertStatus(t, resp, http.StatusForbidden)
	})

	t.Run("edit grant can rename", func(t *testing.T) {
		resp := performJSONRequest(t, env.app, http.MethodPut, "/api/resources/"+resource.ID.String(),
			map[string]any{"name": "renamed.pdf"}, authHeaders(editorToken))
		assertStatus(t, resp, http.StatusOK)
	})

	t.Run("edit grant cannot flip the public flag", func(t *testing.T) {
		resp := performJSONRequest(t, env.app, http.MethodPut, "/api/resources/"+resource.ID.String(),
			map[string]any{"isPublic": true}, authHeaders(editorToken))
		assertStatus(t, resp, http.StatusForbidden)
	})
}

func TestResourcesDelete(t *testing.T) {
	env := setupTestEnv(t)

	owner, ownerToken := createTestUser(t, env.db, "owner@test.com", "password123", models.UserRoleCoach)
	editor, editorToken := createTestUser(t, env.db, "editor@test.com", "password123", models.UserRolePlayer)
	resource := createTestResource(t, env.db, owner, "old-plan.pdf", false)
	createTestGrant(t, env.db, resource, editor, models.PermissionEdit)

	t.Run("edit grant cannot delete", func(t *testing.T) {
		resp := performJSONRequest(t, env.app, http.MethodDelete, "/api/resources/"+resource.ID.String(), nil, authHeaders(editorToken))
		assertStatus(t, resp, http.StatusForbidden)
	})

	t.Run("owner delete removes grants and comments", func(t *testing.T) {
		comment := &models.Comment{ResourceID: resource.ID, AuthorID: owner.ID, Body: "obsolete"}
		if err := env.db.Create(comment).Error; err != nil {
			t.Fatalf("failed creating comment: %v", err)
		}

		resp := performJSONRequest(t, env.app, http.MethodDelete, "/api/resources/"+resource.ID.String(), nil, authHeaders(ownerToken))
		assertStatus(t, resp, http.StatusOK)

		var grantCount, commentCount int64
		env.db.Model(&models.ShareGrant{}).Where("resource_id = ?", resource.ID).Count(&grantCount)
		env.db.Model(&models.Comment{}).Where("resource_id = ?", resource.ID).Count(&commentCount)
		if grantCount != 0 || commentCount != 0 {
			t.Errorf("expected grants and comments gone, got %d grants %d comments", grantCount, commentCount)
		}
	})
}

func TestResourcesList_FiltersInvisible(t *testing.T) {
	env := setupTestEnv(t)

	owner, _ := createTestUser(t, env.db, "owner@test.com", "password123", models.UserRoleCoach)
	viewer, viewerToken := createTestUser(t, env.db, "viewer@test.com", "password123", models.UserRolePlayer)

	createTestResource(t, env.db, owner, "hidden.pdf", false)
	public := createTestResource(t, env.db, owner, "public.pdf", true)
	granted := createTestResource(t, env.db, owner, "granted.pdf", false)
	mine := createTestResource(t, env.db, viewer, "mine.pdf", false)
	createTestGrant(t, env.db, granted, viewer, models.PermissionView)

	resp := performJSONRequest(t, env.app, http.MethodGet, "/api/resources/", nil, authHeaders(viewerToken))
	assertStatus(t, resp, http.StatusOK)
	body := decodeJSONMap(t, resp)

	items := body["data"].([]any)
	if len(items) != 3 {
		t.Fatalf("expected 3 visible resources, got %d", len(items))
	}

	seen := map[string]bool{}
	for _, item := range items {
		seen[item.(map[string]any)["id"].(string)] = true
	}
	for _, want := range []string{public.ID.String(), granted.ID.String(), mine.ID.String()} {
		if !seen[want] {
			t.Errorf("expected resource %s in listing", want)
		}
	}
}

func TestSharedWithMe(t *testing.T) {
	env := setupTestEnv(t)

	owner, _ := createTestUser(t, env.db, "owner@test.com", "password123", models.UserRoleCoach)
	viewer, viewerToken := createTestUser(t, env.db, "viewer@test.com", "password123", models.UserRolePlayer)

	shared := createTestResource(t, env.db, owner, "shared.pdf", false)
	createTestResource(t, env.db, viewer, "own.pdf", false)
	createTestGrant(t, env.db, shared, viewer, models.PermissionComment)

	resp := performJSONRequest(t, env.app, http.MethodGet, "/api/shared", nil, authHeaders(viewerToken))
	assertStatus(t, resp, http.StatusOK)
	body := decodeJSONMap(t, resp)

	items := body["data"].([]any)
	if len(items) != 1 {
		t.Fatalf("expected 1 shared resource, got %d", len(items))
	}
	if items[0].(map[string]any)["id"] != shared.ID.String() {
		t.Errorf("expected the granted resource, got %v", items[0])
	}
}

func TestResourcesCreate(t *testing.T) {
	env := setupTestEnv(t)
	_, token := createTestUser(t, env.db, "coach@test.com", "password123", models.UserRoleCoach)

	t.Run("creates with sanitized name", func(t *testing.T) {
		resp := performJSONRequest(t, env.app, http.MethodPost, "/api/resources/",
			map[string]any{"name": "../../etc/passwd", "mimeType": "text/plain", "size": 10}, authHeaders(token))
		assertStatus(t, resp, http.StatusCreated)
		body := decodeJSONMap(t, resp)
		resource := body["data"].(map[string]any)["resource"].(map[string]any)
		if resource["name"] != "passwd" {
			t.Errorf("expected path-stripped name, got %v", resource["name"])
		}
	})

	t.Run("rejects empty name", func(t *testing.T) {
		resp := performJSONRequest(t, env.app, http.MethodPost, "/api/resources/",
			map[string]any{"name": "   "}, authHeaders(token))
		assertStatus(t, resp, http.StatusBadRequest)
	})

	t.Run("rejects negative size", func(t *testing.T) {
		resp := performJSONRequest(t, env.app, http.MethodPost, "/api/resources/",
			map[string]any{"name": "clip.mp4", "size": -5}, authHeaders(token))
		assertStatus(t, resp, http.StatusBadRequest)
	})
}
