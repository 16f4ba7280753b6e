package ws

import (
	"context"
	"encoding/base64"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"tawk-service/internal/mocks"
	"tawk-service/internal/models"
	"tawk-service/internal/presence"
	"tawk-service/internal/repositories"
	"tawk-service/internal/testutil"
)

type capturedEvent struct {
	Event   string
	Payload any
}

type testPeer struct {
	mu     sync.Mutex
	events []capturedEvent
}

func (p *testPeer) Send(event string, payload any) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, capturedEvent{Event: event, Payload: payload})
	return nil
}

func (p *testPeer) received() []capturedEvent {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]capturedEvent(nil), p.events...)
}

type handlerFixture struct {
	users         *mocks.UserRepositoryMock
	friends       *mocks.FriendRepositoryMock
	conversations *mocks.ConversationRepositoryMock
	messages      *mocks.MessageRepositoryMock
	files         *mocks.ObjectStorageMock
	registry      *presence.Registry
	handler       *EventHandler
}

func newHandlerFixture(t *testing.T, withFiles bool) *handlerFixture {
	t.Helper()
	f := &handlerFixture{
		users:         new(mocks.UserRepositoryMock),
		friends:       new(mocks.FriendRepositoryMock),
		conversations: new(mocks.ConversationRepositoryMock),
		messages:      new(mocks.MessageRepositoryMock),
	}
	log := testutil.MakeNoopLogger()
	f.registry = presence.NewRegistry(nil, log)
	router := presence.NewRouter(f.registry, log)

	var files ObjectStorage
	if withFiles {
		f.files = new(mocks.ObjectStorageMock)
		files = f.files
	}
	f.handler = NewEventHandler(f.users, f.friends, f.conversations, f.messages, router, files, log)
	return f
}

func (f *handlerFixture) connect(t *testing.T, userID int) *testPeer {
	t.Helper()
	peer := &testPeer{}
	f.registry.Register(context.Background(), userID, "conn", peer)
	return peer
}

func TestFriendRequestNotifiesBothParties(t *testing.T) {
	f := newHandlerFixture(t, false)
	sender := f.connect(t, 1)
	recipient := f.connect(t, 2)

	f.users.On("GetByID", mock.Anything, 2).Return(models.User{ID: 2}, nil).Once()
	f.friends.On("AreFriends", mock.Anything, 1, 2).Return(false, nil).Once()
	f.friends.On("HasPendingBetween", mock.Anything, 1, 2).Return(false, nil).Once()
	f.friends.On("CreateRequest", mock.Anything, 1, 2).Return(models.FriendRequest{ID: 5, SenderID: 1, RecipientID: 2}, nil).Once()

	err := f.handler.FriendRequest(context.Background(), sender, 1, FriendRequestPayload{To: 2})
	require.NoError(t, err)

	got := recipient.received()
	require.Len(t, got, 1)
	assert.Equal(t, EventNewFriendRequest, got[0].Event)

	got = sender.received()
	require.Len(t, got, 1)
	assert.Equal(t, EventRequestSent, got[0].Event)

	f.friends.AssertExpectations(t)
	f.users.AssertExpectations(t)
}

func TestFriendRequestOfflineRecipientStillPersisted(t *testing.T) {
	f := newHandlerFixture(t, false)
	sender := f.connect(t, 1)

	f.users.On("GetByID", mock.Anything, 2).Return(models.User{ID: 2}, nil).Once()
	f.friends.On("AreFriends", mock.Anything, 1, 2).Return(false, nil).Once()
	f.friends.On("HasPendingBetween", mock.Anything, 1, 2).Return(false, nil).Once()
	f.friends.On("CreateRequest", mock.Anything, 1, 2).Return(models.FriendRequest{ID: 5, SenderID: 1, RecipientID: 2}, nil).Once()

	err := f.handler.FriendRequest(context.Background(), sender, 1, FriendRequestPayload{To: 2})
	require.NoError(t, err)

	// Sender is still acknowledged even though the recipient was offline.
	got := sender.received()
	require.Len(t, got, 1)
	assert.Equal(t, EventRequestSent, got[0].Event)
	f.friends.AssertExpectations(t)
}

func TestFriendRequestToSelfRejected(t *testing.T) {
	f := newHandlerFixture(t, false)
	sender := f.connect(t, 1)

	err := f.handler.FriendRequest(context.Background(), sender, 1, FriendRequestPayload{To: 1})
	require.ErrorIs(t, err, ErrValidation)
	assert.Empty(t, sender.received())
}

func TestFriendRequestFromMismatchRejected(t *testing.T) {
	f := newHandlerFixture(t, false)
	sender := f.connect(t, 1)

	err := f.handler.FriendRequest(context.Background(), sender, 1, FriendRequestPayload{To: 2, From: 7})
	require.ErrorIs(t, err, ErrValidation)
}

func TestFriendRequestDuplicatePendingRejected(t *testing.T) {
	f := newHandlerFixture(t, false)
	sender := f.connect(t, 1)

	f.users.On("GetByID", mock.Anything, 2).Return(models.User{ID: 2}, nil).Once()
	f.friends.On("AreFriends", mock.Anything, 1, 2).Return(false, nil).Once()
	f.friends.On("HasPendingBetween", mock.Anything, 1, 2).Return(true, nil).Once()

	err := f.handler.FriendRequest(context.Background(), sender, 1, FriendRequestPayload{To: 2})
	require.ErrorIs(t, err, repositories.ErrDuplicateRequest)
	f.friends.AssertNotCalled(t, "CreateRequest", mock.Anything, mock.Anything, mock.Anything)
}

func TestFriendRequestAlreadyFriendsRejected(t *testing.T) {
	f := newHandlerFixture(t, false)
	sender := f.connect(t, 1)

	f.users.On("GetByID", mock.Anything, 2).Return(models.User{ID: 2}, nil).Once()
	f.friends.On("AreFriends", mock.Anything, 1, 2).Return(true, nil).Once()

	err := f.handler.FriendRequest(context.Background(), sender, 1, FriendRequestPayload{To: 2})
	require.ErrorIs(t, err, ErrValidation)
}

func TestAcceptRequestNotifiesBothParties(t *testing.T) {
	f := newHandlerFixture(t, false)
	sender := f.connect(t, 1)
	recipient := f.connect(t, 2)

	f.friends.On("AcceptRequest", mock.Anything, 5).Return(models.FriendRequest{ID: 5, SenderID: 1, RecipientID: 2}, nil).Once()

	err := f.handler.AcceptRequest(context.Background(), recipient, 2, RequestActionPayload{RequestID: 5})
	require.NoError(t, err)

	require.Len(t, sender.received(), 1)
	assert.Equal(t, EventRequestAccepted, sender.received()[0].Event)
	require.Len(t, recipient.received(), 1)
	assert.Equal(t, EventRequestAccepted, recipient.received()[0].Event)
	f.friends.AssertExpectations(t)
}

func TestAcceptRequestUnknownID(t *testing.T) {
	f := newHandlerFixture(t, false)
	peer := f.connect(t, 2)

	f.friends.On("AcceptRequest", mock.Anything, 99).Return(nil, repositories.ErrRequestNotFound).Once()

	err := f.handler.AcceptRequest(context.Background(), peer, 2, RequestActionPayload{RequestID: 99})
	require.ErrorIs(t, err, repositories.ErrRequestNotFound)
	assert.Empty(t, peer.received())
}

func TestDeclineRequestNotifiesSenderOnly(t *testing.T) {
	f := newHandlerFixture(t, false)
	sender := f.connect(t, 1)
	recipient := f.connect(t, 2)

	f.friends.On("DeclineRequest", mock.Anything, 5).Return(models.FriendRequest{ID: 5, SenderID: 1, RecipientID: 2}, nil).Once()

	err := f.handler.DeclineRequest(context.Background(), recipient, 2, RequestActionPayload{RequestID: 5})
	require.NoError(t, err)

	require.Len(t, sender.received(), 1)
	assert.Equal(t, EventRequestDeclined, sender.received()[0].Event)
	assert.Empty(t, recipient.received())
}

func TestDirectConversationsReplies(t *testing.T) {
	f := newHandlerFixture(t, false)
	peer := f.connect(t, 1)

	f.conversations.On("ListForUser", mock.Anything, 1).Return([]models.ConversationSummary{{ConversationID: 3, PeerID: 2}}, nil).Once()

	err := f.handler.DirectConversations(context.Background(), peer, 1)
	require.NoError(t, err)

	got := peer.received()
	require.Len(t, got, 1)
	assert.Equal(t, EventDirectConversations, got[0].Event)
}

func TestDirectConversationsEmptyListNotNil(t *testing.T) {
	f := newHandlerFixture(t, false)
	peer := f.connect(t, 1)

	f.conversations.On("ListForUser", mock.Anything, 1).Return(nil, nil).Once()

	err := f.handler.DirectConversations(context.Background(), peer, 1)
	require.NoError(t, err)

	got := peer.received()
	require.Len(t, got, 1)
	assert.Equal(t, []models.ConversationSummary{}, got[0].Payload)
}

func TestStartConversationNewSkipsHistory(t *testing.T) {
	f := newHandlerFixture(t, false)
	peer := f.connect(t, 1)

	f.conversations.On("FindOrCreate", mock.Anything, 1, 2).Return(models.Conversation{ID: 3, User1ID: 1, User2ID: 2}, true, nil).Once()

	err := f.handler.StartConversation(context.Background(), peer, 1, StartConversationPayload{To: 2})
	require.NoError(t, err)

	got := peer.received()
	require.Len(t, got, 1)
	assert.Equal(t, EventStartChat, got[0].Event)
	f.messages.AssertNotCalled(t, "ListByConversation", mock.Anything, mock.Anything)
}

func TestStartConversationExistingIncludesHistory(t *testing.T) {
	f := newHandlerFixture(t, false)
	peer := f.connect(t, 1)

	f.conversations.On("FindOrCreate", mock.Anything, 1, 2).Return(models.Conversation{ID: 3, User1ID: 1, User2ID: 2}, false, nil).Once()
	f.messages.On("ListByConversation", mock.Anything, 3).Return([]models.Message{{ID: 9, ConversationID: 3}}, nil).Once()

	err := f.handler.StartConversation(context.Background(), peer, 1, StartConversationPayload{To: 2})
	require.NoError(t, err)

	got := peer.received()
	require.Len(t, got, 1)
	payload := got[0].Payload.(map[string]any)
	assert.Len(t, payload["messages"], 1)
	f.messages.AssertExpectations(t)
}

func TestMessagesRequiresParticipant(t *testing.T) {
	f := newHandlerFixture(t, false)
	peer := f.connect(t, 7)

	f.conversations.On("IsParticipant", mock.Anything, 3, 7).Return(false, nil).Once()

	err := f.handler.Messages(context.Background(), peer, 7, GetMessagesPayload{ConversationID: 3})
	require.ErrorIs(t, err, ErrValidation)
	assert.Empty(t, peer.received())
}

func TestMessagesRepliesWithHistory(t *testing.T) {
	f := newHandlerFixture(t, false)
	peer := f.connect(t, 1)

	f.conversations.On("IsParticipant", mock.Anything, 3, 1).Return(true, nil).Once()
	f.messages.On("ListByConversation", mock.Anything, 3).Return([]models.Message{{ID: 9}}, nil).Once()

	err := f.handler.Messages(context.Background(), peer, 1, GetMessagesPayload{ConversationID: 3})
	require.NoError(t, err)

	got := peer.received()
	require.Len(t, got, 1)
	assert.Equal(t, EventMessages, got[0].Event)
}

func TestTextMessageFansOutToBothParticipants(t *testing.T) {
	f := newHandlerFixture(t, false)
	sender := f.connect(t, 1)
	recipient := f.connect(t, 2)

	conv := models.Conversation{ID: 3, User1ID: 1, User2ID: 2}
	f.conversations.On("Get", mock.Anything, 3).Return(conv, nil).Once()
	f.messages.On("Append", mock.Anything, 3, 1, 2, models.MessageKindText, "hello", (*string)(nil)).
		Return(models.Message{ID: 9, ConversationID: 3, SenderID: 1, RecipientID: 2, Kind: models.MessageKindText, Body: "hello"}, nil).Once()

	err := f.handler.TextMessage(context.Background(), sender, 1, TextMessagePayload{To: 2, ConversationID: 3, Message: "hello"})
	require.NoError(t, err)

	require.Len(t, sender.received(), 1)
	assert.Equal(t, EventNewMessage, sender.received()[0].Event)
	require.Len(t, recipient.received(), 1)
	assert.Equal(t, EventNewMessage, recipient.received()[0].Event)
	f.messages.AssertExpectations(t)
}

func TestTextMessageOfflineRecipientDropped(t *testing.T) {
	f := newHandlerFixture(t, false)
	sender := f.connect(t, 1)

	conv := models.Conversation{ID: 3, User1ID: 1, User2ID: 2}
	f.conversations.On("Get", mock.Anything, 3).Return(conv, nil).Once()
	f.messages.On("Append", mock.Anything, 3, 1, 2, models.MessageKindText, "hello", (*string)(nil)).
		Return(models.Message{ID: 9, ConversationID: 3}, nil).Once()

	err := f.handler.TextMessage(context.Background(), sender, 1, TextMessagePayload{To: 2, ConversationID: 3, Message: "hello"})
	require.NoError(t, err)

	// Message persisted, sender echo delivered, offline recipient silently missed.
	require.Len(t, sender.received(), 1)
	f.messages.AssertExpectations(t)
}

func TestTextMessageLinkKindAccepted(t *testing.T) {
	f := newHandlerFixture(t, false)
	sender := f.connect(t, 1)

	conv := models.Conversation{ID: 3, User1ID: 1, User2ID: 2}
	f.conversations.On("Get", mock.Anything, 3).Return(conv, nil).Once()
	f.messages.On("Append", mock.Anything, 3, 1, 2, models.MessageKindLink, "https://example.com", (*string)(nil)).
		Return(models.Message{ID: 9}, nil).Once()

	err := f.handler.TextMessage(context.Background(), sender, 1, TextMessagePayload{
		To: 2, ConversationID: 3, Message: "https://example.com", Kind: models.MessageKindLink,
	})
	require.NoError(t, err)
	f.messages.AssertExpectations(t)
}

func TestTextMessageUnsupportedKindRejected(t *testing.T) {
	f := newHandlerFixture(t, false)
	sender := f.connect(t, 1)

	err := f.handler.TextMessage(context.Background(), sender, 1, TextMessagePayload{
		To: 2, ConversationID: 3, Message: "x", Kind: "video",
	})
	require.ErrorIs(t, err, ErrValidation)
}

func TestTextMessageToStrangerConversationRejected(t *testing.T) {
	f := newHandlerFixture(t, false)
	sender := f.connect(t, 1)

	conv := models.Conversation{ID: 3, User1ID: 5, User2ID: 6}
	f.conversations.On("Get", mock.Anything, 3).Return(conv, nil).Once()

	err := f.handler.TextMessage(context.Background(), sender, 1, TextMessagePayload{To: 6, ConversationID: 3, Message: "x"})
	require.ErrorIs(t, err, ErrValidation)
	f.messages.AssertNotCalled(t, "Append", mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

func TestFileMessageUploadsAndFansOut(t *testing.T) {
	f := newHandlerFixture(t, true)
	sender := f.connect(t, 1)
	recipient := f.connect(t, 2)

	data := []byte("file-bytes")
	conv := models.Conversation{ID: 3, User1ID: 1, User2ID: 2}
	url := "http://files.local/tawk-files/3/doc.pdf"

	f.conversations.On("Get", mock.Anything, 3).Return(conv, nil).Once()
	f.files.On("Upload", mock.Anything, mock.AnythingOfType("string"), data, "application/pdf").Return(url, nil).Once()
	f.messages.On("Append", mock.Anything, 3, 1, 2, models.MessageKindFile, "doc.pdf", &url).
		Return(models.Message{ID: 9, Kind: models.MessageKindFile, FileURL: &url}, nil).Once()

	err := f.handler.FileMessage(context.Background(), sender, 1, FileMessagePayload{
		To: 2, ConversationID: 3,
		File: FileAttachment{Name: "doc.pdf", Data: base64.StdEncoding.EncodeToString(data), ContentType: "application/pdf"},
	})
	require.NoError(t, err)

	require.Len(t, recipient.received(), 1)
	assert.Equal(t, EventNewMessage, recipient.received()[0].Event)
	f.files.AssertExpectations(t)
	f.messages.AssertExpectations(t)
}

func TestFileMessageInvalidBase64Rejected(t *testing.T) {
	f := newHandlerFixture(t, true)
	sender := f.connect(t, 1)

	f.conversations.On("Get", mock.Anything, 3).Return(models.Conversation{ID: 3, User1ID: 1, User2ID: 2}, nil).Once()

	err := f.handler.FileMessage(context.Background(), sender, 1, FileMessagePayload{
		To: 2, ConversationID: 3,
		File: FileAttachment{Name: "doc.pdf", Data: "%%%not-base64%%%"},
	})
	require.ErrorIs(t, err, ErrValidation)
	f.files.AssertNotCalled(t, "Upload", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

func TestFileMessageWithoutStorageConfigured(t *testing.T) {
	f := newHandlerFixture(t, false)
	sender := f.connect(t, 1)

	err := f.handler.FileMessage(context.Background(), sender, 1, FileMessagePayload{To: 2, ConversationID: 3})
	require.Error(t, err)
}
