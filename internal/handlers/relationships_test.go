package handlers

import (
	"net/http"
	"testing"

	"github.com/rosterhub/backend/internal/models"
)

func inviteRelationship(t *testing.T, env *testEnv, inviterToken string, invitedID string) map[string]any {
	t.Helper()
	resp := performJSONRequest(t, env.app, http.MethodPost, "/api/relationships/invite",
		map[string]any{"userID": invitedID}, authHeaders(inviterToken))
	assertStatus(t, resp, http.StatusCreated)
	return decodeJSONMap(t, resp)["data"].(map[string]any)
}

func TestRelationshipsInvite(t *testing.T) {
	env := setupTestEnv(t)

	coach, coachToken := createTestUser(t, env.db, "coach@test.com", "password123", models.UserRoleCoach)
	player, playerToken := createTestUser(t, env.db, "player@test.com", "password123", models.UserRolePlayer)
	otherPlayer, _ := createTestUser(t, env.db, "player2@test.com", "password123", models.UserRolePlayer)

	t.Run("coach invites player", func(t *testing.T) {
		data := inviteRelationship(t, env, coachToken, player.ID.String())
		if data["status"] != "pending" {
			t.Errorf("expected pending invitation, got %v", data["status"])
		}
		if data["coachID"] != coach.ID.String() || data["playerID"] != player.ID.String() {
			t.Errorf("expected coach/player sides preserved, got %v", data)
		}
	})

	t.Run("duplicate invitation conflicts", func(t *testing.T) {
		resp := performJSONRequest(t, env.app, http.MethodPost, "/api/relationships/invite",
			map[string]any{"userID": player.ID.String()}, authHeaders(coachToken))
		assertStatus(t, resp, http.StatusConflict)
	})

	t.Run("player invites coach with sides swapped", func(t *testing.T) {
		secondCoach, _ := createTestUser(t, env.db, "coach2@test.com", "password123", models.UserRoleCoach)
		data := inviteRelationship(t, env, playerToken, secondCoach.ID.String())
		if data["coachID"] != secondCoach.ID.String() || data["playerID"] != player.ID.String() {
			t.Errorf("expected sides normalized to coach/player, got %v", data)
		}
	})

	t.Run("player cannot invite player", func(t *testing.T) {
		resp := performJSONRequest(t, env.app, http.MethodPost, "/api/relationships/invite",
			map[string]any{"userID": otherPlayer.ID.String()}, authHeaders(playerToken))
		assertStatus(t, resp, http.StatusBadRequest)
	})

	t.Run("cannot invite yourself", func(t *testing.T) {
		resp := performJSONRequest(t, env.app, http.MethodPost, "/api/relationships/invite",
			map[string]any{"userID": coach.ID.String()}, authHeaders(coachToken))
		assertStatus(t, resp, http.StatusBadRequest)
	})
}

func TestRelationshipsAcceptDecline(t *testing.T) {
	env := setupTestEnv(t)

	_, coachToken := createTestUser(t, env.db, "coach@test.com", "password123", models.UserRoleCoach)
	player, playerToken := createTestUser(t, env.db, "player@test.com", "password123", models.UserRolePlayer)

	data := inviteRelationship(t, env, coachToken, player.ID.String())
	relID := data["id"].(string)

	t.Run("inviter cannot accept their own invitation", func(t *testing.T) {
		resp := performJSONRequest(t, env.app, http.MethodPost, "/api/relationships/"+relID+"/accept", nil, authHeaders(coachToken))
		assertStatus(t, resp, http.StatusForbidden)
	})

	t.Run("outsider cannot see the invitation", func(t *testing.T) {
		_, outsiderToken := createTestUser(t, env.db, "outsider@test.com", "password123", models.UserRolePlayer)
		resp := performJSONRequest(t, env.app, http.MethodPost, "/api/relationships/"+relID+"/accept", nil, authHeaders(outsiderToken))
		assertStatus(t, resp, http.StatusNotFound)
	})

	t.Run("invited player accepts", func(t *testing.T) {
		resp := performJSONRequest(t, env.app, http.MethodPost, "/api/relationships/"+relID+"/accept", nil, authHeaders(playerToken))
		assertStatus(t, resp, http.StatusOK)
		body := decodeJSONMap(t, resp)
		if body["data"].(map[string]any)["status"] != "accepted" {
			t.Errorf("expected accepted, got %v", body["data"])
		}
	})

	t.Run("resolved invitation cannot be re-accepted", func(t *testing.T) {
		resp := performJSONRequest(t, env.app, http.MethodPost, "/api/relationships/"+relID+"/accept", nil, authHeaders(playerToken))
		assertStatus(t, resp, http.StatusConflict)
	})
}

func TestRelationshipsDecline(t *testing.T) {
	env := setupTestEnv(t)

	_, coachToken := createTestUser(t, env.db, "coach@test.com", "password123", models.UserRoleCoach)
	player, playerToken := createTestUser(t, env.db, "player@test.com", "password123", models.UserRolePlayer)

	data := inviteRelationship(t, env, coachToken, player.ID.String())
	relID := data["id"].(string)

	resp := performJSONRequest(t, env.app, http.MethodPost, "/api/relationships/"+relID+"/decline", nil, authHeaders(playerToken))
	assertStatus(t, resp, http.StatusOK)
	body := decodeJSONMap(t, resp)
	if body["data"].(map[string]any)["status"] != "declined" {
		t.Errorf("expected declined, got %v", body["data"])
	}

	t.Run("declined invitation can be reissued", func(t *testing.T) {
		reissued := inviteRelationship(t, env, coachToken, player.ID.String())
		if reissued["status"] != "pending" {
			t.Errorf("expected retried invitation pending, got %v", reissued["status"])
		}
	})
}

func TestRelationshipsRevoke(t *testing.T) {
	env := setupTestEnv(t)

	coach, coachToken := createTestUser(t, env.db, "coach@test.com", "password123", models.UserRoleCoach)
	player, _ := createTestUser(t, env.db, "player@test.com", "password123", models.UserRolePlayer)

	rel := &models.CoachPlayerRelationship{
		CoachID:     coach.ID,
		PlayerID:    player.ID,
		InvitedByID: coach.ID,
		Status:      models.RelationshipAccepted,
	}
	if err := env.db.Create(rel).Error; err != nil {
		t.Fatalf("failed creating relationship: %v", err)
	}

	t.Run("either side may revoke", func(t *testing.T) {
		resp := performJSONRequest(t, env.app, http.MethodDelete, "/api/relationships/"+rel.ID.String(), nil, authHeaders(coachToken))
		assertStatus(t, resp, http.StatusOK)

		var count int64
		env.db.Model(&models.CoachPlayerRelationship{}).Where("id = ?", rel.ID).Count(&count)
		if count != 0 {
			t.Error("expected relationship row deleted")
		}
	})
}

func TestRelationshipsList(t *testing.T) {
	env := setupTestEnv(t)

	coach, coachToken := createTestUser(t, env.db, "coach@test.com", "password123", models.UserRoleCoach)
	player, _ := createTestUser(t, env.db, "player@test.com", "password123", models.UserRolePlayer)
	otherCoach, _ := createTestUser(t, env.db, "coach2@test.com", "password123", models.UserRoleCoach)
	otherPlayer, _ := createTestUser(t, env.db, "player2@test.com", "password123", models.UserRolePlayer)

	mine := &models.CoachPlayerRelationship{CoachID: coach.ID, PlayerID: player.ID, InvitedByID: coach.ID, Status: models.RelationshipAccepted}
	foreign := &models.CoachPlayerRelationship{CoachID: otherCoach.ID, PlayerID: otherPlayer.ID, InvitedByID: otherCoach.ID, Status: models.RelationshipAccepted}
	for _, rel := range []*models.CoachPlayerRelationship{mine, foreign} {
		if err := env.db.Create(rel).Error; err != nil {
			t.Fatalf("failed creating relationship: %v", err)
		}
	}

	resp := performJSONRequest(t, env.app, http.MethodGet, "/api/relationships/", nil, authHeaders(coachToken))
	assertStatus(t, resp, http.StatusOK)
	body := decodeJSONMap(t, resp)
	items := body["data"].([]any)
	if len(items) != 1 {
		t.Fatalf("expected only own relationships, got %d", len(items))
	}
	if items[0].(map[string]any)["id"] != mine.ID.String() {
		t.Errorf("expected own relationship, got %v", items[0])
	}
}
