package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strconv"
	"testing"
	"time"

	"golang.org/x/time/rate"

	"quicktalk/internal/app/bus"
	"quicktalk/internal/app/chat"
	"quicktalk/internal/app/message"
	"quicktalk/internal/app/presence"
	"quicktalk/internal/app/user"
	"quicktalk/internal/configs"
	"quicktalk/internal/pkg/errs"
	"quicktalk/internal/pkg/limiter"
	"quicktalk/internal/pkg/pow"
)

const testSecret = "handler-test-secret"

type envelope struct {
	Code    int             `json:"code"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data"`
}

type testApp struct {
	t      *testing.T
	server *httptest.Server
	deps   *AppDeps
}

func newTestApp(t *testing.T, sendLimit int) *testApp {
	t.Helper()

	cfg := &configs.AppConfig{
		Environment:       "development",
		JWTSecret:         testSecret,
		PowDifficulty:     1,
		MessageRateLimit:  sendLimit,
		MessageRateWindow: time.Minute,
	}

	users := user.NewMemoryRepository()
	messages := message.NewStore(message.NewMemoryBackend(users))
	router := presence.NewRouter(presence.NewDirectory(), presence.WithSweepInterval(0))

	ctx, cancel := context.WithCancel(context.Background())

	deps := &AppDeps{
		Config:         cfg,
		Users:          users,
		Messages:       messages,
		Aggregator:     chat.NewAggregator(messages, users),
		Sender:         chat.NewCoordinator(messages, bus.NewLocalBus(bus.RouterHandler(router)), nil),
		Router:         router,
		Pow:            pow.NewManager(cfg.PowDifficulty),
		SendLimiter:    limiter.NewFixedWindow(limiter.NewMemoryWindowStore(), sendLimit, time.Minute),
		ConnectLimiter: limiter.NewIPRateLimiter(rate.Inf, 1),
		BaseContext:    ctx,
	}

	srv := httptest.NewServer(Router(deps))
	t.Cleanup(func() {
		router.Shutdown()
		cancel()
		srv.Close()
	})

	return &testApp{t: t, server: srv, deps: deps}
}

func (a *testApp) do(method, path, token string, body any, headers ...string) (int, envelope) {
	a.t.Helper()

	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			a.t.Fatalf("encode: %v", err)
		}
	}

	req, err := http.NewRequest(method, a.server.URL+path, &buf)
	if err != nil {
		a.t.Fatalf("NewRequest: %v", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	for i := 0; i+1 < len(headers); i += 2 {
		req.Header.Set(headers[i], headers[i+1])
	}

	res, err := http.DefaultClient.Do(req)
	if err != nil {
		a.t.Fatalf("%s %s: %v", method, path, err)
	}
	defer res.Body.Close()

	var env envelope
	if err := json.NewDecoder(res.Body).Decode(&env); err != nil {
		a.t.Fatalf("%s %s: decode: %v", method, path, err)
	}
	return res.StatusCode, env
}

func decodeData(t *testing.T, env envelope, dst any) {
	t.Helper()
	if err := json.Unmarshal(env.Data, dst); err != nil {
		t.Fatalf("decode data %s: %v", env.Data, err)
	}
}

func (a *testApp) powToken() string {
	a.t.Helper()

	status, env := a.do(http.MethodGet, "/api/auth/challenge", "", nil)
	if status != http.StatusOK {
		a.t.Fatalf("challenge status = %d", status)
	}
	var ch pow.Challenge
	decodeData(a.t, env, &ch)

	counter := ""
	for i := 0; ; i++ {
		if pow.Solves(ch.Nonce, strconv.Itoa(i), ch.Difficulty) {
			counter = strconv.Itoa(i)
			break
		}
	}

	status, env = a.do(http.MethodPost, "/api/auth/challenge/verify", "", VerifyChallengeInput{Nonce: ch.Nonce, Counter: counter})
	if status != http.StatusOK {
		a.t.Fatalf("verify status = %d (%s)", status, env.Message)
	}
	var out struct {
		PowToken string `json:"powToken"`
	}
	decodeData(a.t, env, &out)
	return out.PowToken
}

// signup registers and logs in a user, returning its id and access token.
func (a *testApp) signup(email, name string) (string, string) {
	a.t.Helper()

	status, env := a.do(http.MethodPost, "/api/auth/register", "",
		RegisterInput{Email: email, FullName: name, Password: "secret123"},
		pow.TokenHeaderKey, a.powToken())
	if status != http.StatusCreated {
		a.t.Fatalf("register status = %d (%s)", status, env.Message)
	}

	status, env = a.do(http.MethodPost, "/api/auth/login", "", LoginInput{Email: email, Password: "secret123"})
	if status != http.StatusOK {
		a.t.Fatalf("login status = %d (%s)", status, env.Message)
	}
	var out struct {
		Token string    `json:"token"`
		User  user.User `json:"user"`
	}
	decodeData(a.t, env, &out)
	return out.User.ID, out.Token
}

func TestHealth(t *testing.T) {
	app := newTestApp(t, 100)

	status, env := app.do(http.MethodGet, "/health", "", nil)
	if status != http.StatusOK || env.Code != 0 {
		t.Fatalf("health = %d %+v", status, env)
	}
}

func TestRegisterRequiresProofOfWork(t *testing.T) {
	app := newTestApp(t, 100)

	status, env := app.do(http.MethodPost, "/api/auth/register", "",
		RegisterInput{Email: "a@example.com", FullName: "Alice", Password: "secret123"})
	if status != http.StatusForbidden || env.Code != errs.ErrPowChallengeRequired {
		t.Fatalf("register without proof = %d %+v", status, env)
	}

	status, env = app.do(http.MethodPost, "/api/auth/challenge/verify", "", VerifyChallengeInput{Nonce: "unknown", Counter: "1"})
	if status != http.StatusForbidden || env.Code != errs.ErrPowChallengeInvalid {
		t.Fatalf("verify unknown nonce = %d %+v", status, env)
	}
}

func TestRegisterValidation(t *testing.T) {
	app := newTestApp(t, 100)

	tests := []struct {
		name  string
		input RegisterInput
		code  int
	}{
		{"weak password", RegisterInput{Email: "a@example.com", FullName: "Alice", Password: "abcdef"}, errs.ErrInvalidPassword},
		{"short password", RegisterInput{Email: "a@example.com", FullName: "Alice", Password: "a1"}, errs.ErrInvalidPassword},
		{"bad email", RegisterInput{Email: "not-an-email", FullName: "Alice", Password: "secret123"}, errs.ErrInvalidEmail},
		{"short name", RegisterInput{Email: "a@example.com", FullName: "A", Password: "secret123"}, errs.ErrInvalidFullName},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			status, env := app.do(http.MethodPost, "/api/auth/register", "", tt.input, pow.TokenHeaderKey, app.powToken())
			if status != http.StatusBadRequest || env.Code != tt.code {
				t.Fatalf("got %d %+v, want code %d", status, env, tt.code)
			}
		})
	}

	app.signup("dup@example.com", "Dup User")
	status, env := app.do(http.MethodPost, "/api/auth/register", "",
		RegisterInput{Email: "DUP@example.com", FullName: "Dup Again", Password: "secret123"},
		pow.TokenHeaderKey, app.powToken())
	if env.Code != errs.ErrUserAlreadyExists {
		t.Fatalf("duplicate email = %d %+v", status, env)
	}
}

func TestLoginRejectsBadCredentials(t *testing.T) {
	app := newTestApp(t, 100)
	app.signup("alice@example.com", "Alice")

	for _, in := range []LoginInput{
		{Email: "alice@example.com", Password: "wrong123"},
		{Email: "nobody@example.com", Password: "secret123"},
	} {
		status, env := app.do(http.MethodPost, "/api/auth/login", "", in)
		if status != http.StatusBadRequest || env.Code != errs.ErrInvalidCredentials {
			t.Fatalf("login %s = %d %+v", in.Email, status, env)
		}
	}
}

func TestProtectedRoutesRequireToken(t *testing.T) {
	app := newTestApp(t, 100)

	for _, path := range []string{"/api/chats", "/api/user/profile", "/api/messages/x", "/api/search?q=a"} {
		status, env := app.do(http.MethodGet, path, "", nil)
		if status != http.StatusUnauthorized || env.Code != errs.ErrUnauthorized {
			t.Errorf("%s = %d %+v", path, status, env)
		}
	}
}

func TestMessagingFlow(t *testing.T) {
	app := newTestApp(t, 100)
	aliceID, aliceToken := app.signup("alice@example.com", "Alice")
	bobID, bobToken := app.signup("bob@example.com", "Bob")

	status, env := app.do(http.MethodPost, "/api/messages", aliceToken,
		CreateMessageInput{ReceiverID: bobID, MessageType: "text", Content: "hello <script>x</script>bob"})
	if status != http.StatusCreated {
		t.Fatalf("send status = %d (%s)", status, env.Message)
	}
	var created struct {
		MessageData message.Message `json:"messageData"`
	}
	decodeData(t, env, &created)
	if created.MessageData.Content != "hello bob" || created.MessageData.SenderID != aliceID {
		t.Fatalf("created = %+v", created.MessageData)
	}

	status, env = app.do(http.MethodGet, "/api/messages/"+aliceID, bobToken, nil)
	if status != http.StatusOK {
		t.Fatalf("list status = %d", status)
	}
	var page message.Page
	decodeData(t, env, &page)
	if len(page.Messages) != 1 || page.HasMore || page.Messages[0].ID != created.MessageData.ID {
		t.Fatalf("page = %+v", page)
	}

	status, env = app.do(http.MethodGet, "/api/chats", bobToken, nil)
	if status != http.StatusOK {
		t.Fatalf("chats status = %d", status)
	}
	var chats struct {
		ChatList []chat.ConversationSummary `json:"chatList"`
	}
	decodeData(t, env, &chats)
	if len(chats.ChatList) != 1 || chats.ChatList[0].UserID != aliceID || chats.ChatList[0].FullName != "Alice" {
		t.Fatalf("chatList = %+v", chats.ChatList)
	}
}

func TestSendMessageErrors(t *testing.T) {
	app := newTestApp(t, 100)
	_, token := app.signup("alice@example.com", "Alice")
	bobID, _ := app.signup("bob@example.com", "Bob")

	tests := []struct {
		name   string
		input  CreateMessageInput
		status int
		code   int
	}{
		{"unknown receiver", CreateMessageInput{ReceiverID: "00000000-0000-0000-0000-000000000000", MessageType: "text", Content: "hi"}, http.StatusNotFound, errs.ErrReceiverNotFound},
		{"bad type", CreateMessageInput{ReceiverID: bobID, MessageType: "video", Content: "hi"}, http.StatusBadRequest, errs.ErrInvalidMessageType},
		{"empty", CreateMessageInput{ReceiverID: bobID, MessageType: "text", Content: "  "}, http.StatusBadRequest, errs.ErrMessageContentEmpty},
		{"missing receiver", CreateMessageInput{MessageType: "text", Content: "hi"}, http.StatusBadRequest, errs.ErrInvalidParams},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			status, env := app.do(http.MethodPost, "/api/messages", token, tt.input)
			if status != tt.status || env.Code != tt.code {
				t.Fatalf("got %d %+v", status, env)
			}
		})
	}

	status, env := app.do(http.MethodGet, "/api/messages/"+bobID+"?page=abc", token, nil)
	if status != http.StatusBadRequest || env.Code != errs.ErrInvalidParams {
		t.Fatalf("bad page = %d %+v", status, env)
	}
}

func TestSendMessageRateLimit(t *testing.T) {
	app := newTestApp(t, 2)
	_, token := app.signup("alice@example.com", "Alice")
	bobID, _ := app.signup("bob@example.com", "Bob")

	in := CreateMessageInput{ReceiverID: bobID, MessageType: "text", Content: "hi"}
	for i := 0; i < 2; i++ {
		if status, env := app.do(http.MethodPost, "/api/messages", token, in); status != http.StatusCreated {
			t.Fatalf("send %d = %d %+v", i+1, status, env)
		}
	}

	status, env := app.do(http.MethodPost, "/api/messages", token, in)
	if status != http.StatusTooManyRequests || env.Code != errs.ErrRateLimitExceeded {
		t.Fatalf("third send = %d %+v", status, env)
	}
}

func TestProfileAndSearch(t *testing.T) {
	app := newTestApp(t, 100)
	_, token := app.signup("alice@example.com", "Alice Liddell")
	app.signup("bob@example.com", "Bob Builder")

	name := "Alice Wonder"
	bio := "  curious  "
	gender := "Female"
	status, env := app.do(http.MethodPut, "/api/user/profile", token, UpdateProfileInput{FullName: &name, Bio: &bio, Gender: &gender})
	if status != http.StatusOK {
		t.Fatalf("update = %d %+v", status, env)
	}

	status, env = app.do(http.MethodGet, "/api/user/profile", token, nil)
	if status != http.StatusOK {
		t.Fatalf("profile = %d", status)
	}
	var profile struct {
		User user.User `json:"user"`
	}
	decodeData(t, env, &profile)
	if profile.User.FullName != "Alice Wonder" || profile.User.Bio != "curious" || profile.User.Gender != user.GenderFemale {
		t.Fatalf("profile = %+v", profile.User)
	}

	bad := "robot"
	if status, env := app.do(http.MethodPut, "/api/user/profile", token, UpdateProfileInput{Gender: &bad}); env.Code != errs.ErrInvalidGender {
		t.Fatalf("bad gender = %d %+v", status, env)
	}

	status, env = app.do(http.MethodGet, "/api/search?q=builder", token, nil)
	if status != http.StatusOK {
		t.Fatalf("search = %d", status)
	}
	var found struct {
		Users []user.Summary `json:"users"`
	}
	decodeData(t, env, &found)
	if len(found.Users) != 1 || found.Users[0].FullName != "Bob Builder" {
		t.Fatalf("search = %+v", found.Users)
	}

	if status, env := app.do(http.MethodGet, "/api/search?q=", token, nil); env.Code != errs.ErrInvalidParams {
		t.Fatalf("empty query = %d %+v", status, env)
	}
}

func TestPresignWithoutStorage(t *testing.T) {
	app := newTestApp(t, 100)
	_, token := app.signup("alice@example.com", "Alice")

	in := PresignUploadInput{FileName: "a.png", MimeType: "image/png", FileSize: 10, MessageType: "image"}
	for _, path := range []string{"/api/files/presign", "/api/user/avatar/presign"} {
		status, env := app.do(http.MethodPost, path, token, in)
		if status != http.StatusNotImplemented || env.Code != errs.ErrFileStorageDisabled {
			t.Errorf("%s = %d %+v", path, status, env)
		}
	}
}

type fakeStorage struct{}

func (fakeStorage) PresignUpload(_ context.Context, key, _ string, _ int64, _ time.Duration) (string, error) {
	return "https://upload.example.com/" + key + "?sig=1", nil
}

func (fakeStorage) ObjectURL(key string) string {
	return "https://cdn.example.com/" + key
}

func TestPresignMessageFile(t *testing.T) {
	app := newTestApp(t, 100)
	app.deps.StorageService = fakeStorage{}
	aliceID, token := app.signup("alice@example.com", "Alice")

	status, env := app.do(http.MethodPost, "/api/files/presign", token,
		PresignUploadInput{FileName: "voice.ogg", MimeType: "audio/ogg", FileSize: 2048, MessageType: "audio"})
	if status != http.StatusOK {
		t.Fatalf("presign = %d %+v", status, env)
	}
	var out struct {
		FileKey string `json:"fileKey"`
		FileURL string `json:"fileUrl"`
	}
	decodeData(t, env, &out)
	if want := "audio/" + aliceID + "/"; len(out.FileKey) <= len(want) || out.FileKey[:len(want)] != want {
		t.Fatalf("fileKey = %q", out.FileKey)
	}
	if out.FileURL != "https://cdn.example.com/"+out.FileKey {
		t.Fatalf("fileUrl = %q", out.FileURL)
	}

	tests := []struct {
		in   PresignUploadInput
		code int
	}{
		{PresignUploadInput{FileName: "a.png", MimeType: "image/png", FileSize: 10, MessageType: "text"}, errs.ErrInvalidMessageType},
		{PresignUploadInput{FileName: "a.exe", MimeType: "application/x-msdownload", FileSize: 10, MessageType: "file"}, errs.ErrFileTypeNotAllowed},
		{PresignUploadInput{FileName: "a.png", MimeType: "image/png", FileSize: 50 << 20, MessageType: "image"}, errs.ErrFileSizeTooLarge},
	}
	for _, tt := range tests {
		if status, env := app.do(http.MethodPost, "/api/files/presign", token, tt.in); env.Code != tt.code {
			t.Errorf("%+v = %d %+v, want code %d", tt.in, status, env, tt.code)
		}
	}
}
