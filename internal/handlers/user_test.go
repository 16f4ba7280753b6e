package handlers

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"tawk-service/internal/mocks"
	"tawk-service/internal/models"
	"tawk-service/internal/testutil"
)

func setupUserRouter(users *mocks.UserRepositoryMock, friends *mocks.FriendRepositoryMock) *gin.Engine {
	gin.SetMode(gin.TestMode)
	handler := NewUserHandler(users, friends, testutil.MakeNoopLogger())

	r := gin.New()
	r.Use(func(c *gin.Context) {
		c.Set("userID", 1)
		c.Next()
	})
	r.PATCH("/user/me", handler.UpdateMe)
	r.GET("/user/others", handler.GetOthers)
	r.GET("/user/friends", handler.GetFriends)
	r.GET("/user/requests", handler.GetRequests)
	return r
}

func TestUpdateMe(t *testing.T) {
	users := new(mocks.UserRepositoryMock)
	router := setupUserRouter(users, new(mocks.FriendRepositoryMock))

	users.On("UpdateProfile", mock.Anything, 1, "Ada", "Byron", "http://files.local/avatar.png").
		Return(models.User{ID: 1, FirstName: "Ada", LastName: "Byron", Avatar: "http://files.local/avatar.png"}, nil).Once()

	body := bytes.NewBufferString(`{"first_name":"Ada","last_name":"Byron","avatar":"http://files.local/avatar.png"}`)
	req := httptest.NewRequest(http.MethodPatch, "/user/me", body)
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	users.AssertExpectations(t)
}

func TestUpdateMeMissingName(t *testing.T) {
	users := new(mocks.UserRepositoryMock)
	router := setupUserRouter(users, new(mocks.FriendRepositoryMock))

	req := httptest.NewRequest(http.MethodPatch, "/user/me", bytes.NewBufferString(`{"avatar":"x"}`))
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusBadRequest, rec.Code)
	users.AssertNotCalled(t, "UpdateProfile", mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

func TestGetOthers(t *testing.T) {
	users := new(mocks.UserRepositoryMock)
	router := setupUserRouter(users, new(mocks.FriendRepositoryMock))

	users.On("ListOthers", mock.Anything, 1).
		Return([]models.UserSummary{{ID: 2, FirstName: "Grace"}}, nil).Once()

	req := httptest.NewRequest(http.MethodGet, "/user/others", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	var resp map[string]any
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&resp))
	assert.Equal(t, "success", resp["status"])
	users.AssertExpectations(t)
}

func TestGetFriendsRepoError(t *testing.T) {
	friends := new(mocks.FriendRepositoryMock)
	router := setupUserRouter(new(mocks.UserRepositoryMock), friends)

	friends.On("ListFriends", mock.Anything, 1).Return(nil, assert.AnError).Once()

	req := httptest.NewRequest(http.MethodGet, "/user/friends", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusInternalServerError, rec.Code)
}

func TestGetRequests(t *testing.T) {
	friends := new(mocks.FriendRepositoryMock)
	router := setupUserRouter(new(mocks.UserRepositoryMock), friends)

	friends.On("ListRequestsForRecipient", mock.Anything, 1).
		Return([]models.FriendRequestView{{ID: 5, SenderID: 2, RecipientID: 1, SenderFirstName: "Grace"}}, nil).Once()

	req := httptest.NewRequest(http.MethodGet, "/user/requests", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	friends.AssertExpectations(t)
}
