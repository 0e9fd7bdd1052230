package web

import (
	"bytes"
	"context"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"net/textproto"
	"net/url"
	"os"
	"path/filepath"
	"regexp"
	"strconv"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"

	"github.com/go-while/go-newsroom/internal/config"
	"github.com/go-while/go-newsroom/internal/database"
	"github.com/go-while/go-newsroom/internal/models"
	"github.com/go-while/go-newsroom/internal/newsroom"
)

type testEnv struct {
	server    *WebServer
	db        *database.Database
	imagesDir string
	techID    int64
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	gin.SetMode(gin.TestMode)

	dir := t.TempDir()
	dbcfg := database.DefaultDBConfig()
	dbcfg.DataDir = dir
	db, err := database.OpenDatabase(dbcfg)
	if err != nil {
		t.Fatalf("OpenDatabase: %v", err)
	}
	t.Cleanup(func() { db.Shutdown() })

	cfg := config.NewDefaultConfig()
	cfg.Web.RateLimitRPS = 0
	cfg.Uploads.ImagesDirectory = filepath.Join(dir, "images")
	server := NewServer(db, cfg)
	server.Newsroom.Hasher = newsroom.NewBcryptHasher(4)
	t.Cleanup(func() { server.Shutdown(context.Background()) })

	tech, err := db.FindCategoryByAlias(context.Background(), "tech")
	if err != nil {
		t.Fatal(err)
	}
	return &testEnv{server: server, db: db, imagesDir: cfg.Uploads.ImagesDirectory, techID: tech.ID}
}

// login creates a user with roles and returns its session cookie
func (env *testEnv) login(t *testing.T, email string, roles ...string) *http.Cookie {
	t.Helper()
	ctx := context.Background()
	u := &models.User{FirstName: "Jo", LastName: "Urnalist", Email: email, Password: "x", Roles: roles}
	if _, err := env.db.SaveUser(ctx, u); err != nil {
		t.Fatal(err)
	}
	sid, err := env.db.CreateUserSession(ctx, u.ID, "127.0.0.1")
	if err != nil {
		t.Fatal(err)
	}
	return &http.Cookie{Name: sessionCookieName, Value: sid}
}

func (env *testEnv) do(req *http.Request, cookies ...*http.Cookie) *httptest.ResponseRecorder {
	for _, c := range cookies {
		req.AddCookie(c)
	}
	w := httptest.NewRecorder()
	env.server.Router.ServeHTTP(w, req)
	return w
}

func postForm(path string, values url.Values) *http.Request {
	req := httptest.NewRequest(http.MethodPost, path, strings.NewReader(values.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	return req
}

func cookieFrom(w *httptest.ResponseRecorder, name string) *http.Cookie {
	for _, c := range w.Result().Cookies() {
		if c.Name == name {
			return c
		}
	}
	return nil
}

func TestPing(t *testing.T) {
	env := newTestEnv(t)
	w := env.do(httptest.NewRequest(http.MethodGet, "/ping", nil))
	if w.Code != http.StatusOK || w.Body.String() != "pong" {
		t.Errorf("ping = %d %q", w.Code, w.Body.String())
	}
	if w.Header().Get("X-Frame-Options") != "DENY" {
		t.Errorf("security headers missing")
	}
}

func TestArticleCreateRequiresLogin(t *testing.T) {
	env := newTestEnv(t)
	w := env.do(httptest.NewRequest(http.MethodGet, "/article/creer-un-article", nil))
	if w.Code != http.StatusSeeOther || !strings.HasPrefix(w.Header().Get("Location"), "/login?redirect=") {
		t.Errorf("anonymous = %d %s", w.Code, w.Header().Get("Location"))
	}
}

func TestArticleCreateRequiresJournalist(t *testing.T) {
	env := newTestEnv(t)
	cookie := env.login(t, "reader@example.com", models.RoleUser)
	w := env.do(httptest.NewRequest(http.MethodGet, "/article/creer-un-article", nil), cookie)
	if w.Code != http.StatusForbidden {
		t.Errorf("plain user = %d, want 403", w.Code)
	}
}

func TestArticleCreateForm(t *testing.T) {
	env := newTestEnv(t)
	cookie := env.login(t, "j@example.com", models.RoleUser, models.RoleJournalist)

	w := env.do(httptest.NewRequest(http.MethodGet, "/article/creer-un-article", nil), cookie)
	if w.Code != http.StatusOK {
		t.Fatalf("GET = %d", w.Code)
	}
	body := w.Body.String()
	for _, want := range []string{`name="title"`, `name="category"`, `name="content"`, `name="featuredImage"`, `name="submit"`, "Tech"} {
		if !strings.Contains(body, want) {
			t.Errorf("form lacks %s", want)
		}
	}

	// POST without the submit marker only redisplays the form
	w = env.do(postForm("/article/creer-un-article", url.Values{"title": {"T"}}), cookie)
	if w.Code != http.StatusOK {
		t.Errorf("unsubmitted POST = %d", w.Code)
	}
	if n, _ := env.db.CountArticles(context.Background()); n != 0 {
		t.Errorf("unsubmitted POST persisted %d articles", n)
	}
}

func TestArticleCreateSuccess(t *testing.T) {
	env := newTestEnv(t)
	cookie := env.login(t, "j@example.com", models.RoleUser, models.RoleJournalist)

	w := env.do(postForm("/article/creer-un-article", url.Values{
		"title":    {"Hello World"},
		"category": {strconv.FormatInt(env.techID, 10)},
		"content":  {"First paragraph.\n\nSecond one."},
		"submit":   {"1"},
	}), cookie)
	if w.Code != http.StatusSeeOther {
		t.Fatalf("POST = %d: %s", w.Code, w.Body.String())
	}
	loc := w.Header().Get("Location")
	m := regexp.MustCompile(`^/tech/hello-world/(\d+)$`).FindStringSubmatch(loc)
	if m == nil {
		t.Fatalf("redirect = %q", loc)
	}

	// follow the redirect with the flash cookie
	flash := cookieFrom(w, flashCookieName)
	if flash == nil {
		t.Fatal("no flash cookie set")
	}
	w = env.do(httptest.NewRequest(http.MethodGet, loc, nil), cookie, flash)
	if w.Code != http.StatusOK {
		t.Fatalf("view = %d", w.Code)
	}
	body := w.Body.String()
	if !strings.Contains(body, msgArticlePublished) || !strings.Contains(body, "Hello World") {
		t.Errorf("view page lacks flash or title")
	}

	// flash is one-time
	w = env.do(httptest.NewRequest(http.MethodGet, loc, nil), cookie, flash)
	if strings.Contains(w.Body.String(), msgArticlePublished) {
		t.Errorf("flash shown twice")
	}

	// a wrong category or alias in the path is rejected
	w = env.do(httptest.NewRequest(http.MethodGet, "/sport/hello-world/"+m[1], nil))
	if w.Code != http.StatusNotFound {
		t.Errorf("mismatched category = %d", w.Code)
	}
}

func TestArticleCreateInvalid(t *testing.T) {
	env := newTestEnv(t)
	cookie := env.login(t, "j@example.com", models.RoleUser, models.RoleJournalist)

	for _, values := range []url.Values{
		{"category": {strconv.FormatInt(env.techID, 10)}, "content": {"c"}, "submit": {"1"}},
		{"title": {"t"}, "category": {strconv.FormatInt(env.techID, 10)}, "submit": {"1"}},
		{"title": {"t"}, "content": {"c"}, "submit": {"1"}},
	} {
		w := env.do(postForm("/article/creer-un-article", values), cookie)
		if w.Code != http.StatusOK {
			t.Errorf("invalid POST %v = %d, want 200", values, w.Code)
		}
		if !strings.Contains(w.Body.String(), `class="error"`) {
			t.Errorf("invalid POST %v rendered no field error", values)
		}
	}
	if n, _ := env.db.CountArticles(context.Background()); n != 0 {
		t.Errorf("invalid submissions persisted %d articles", n)
	}
}

var pngBytes = []byte{
	0x89, 0x50, 0x4e, 0x47, 0x0d, 0x0a, 0x1a, 0x0a,
	0x00, 0x00, 0x00, 0x0d, 0x49, 0x48, 0x44, 0x52,
	0x00, 0x00, 0x00, 0x01, 0x00, 0x00, 0x00, 0x01,
}

// articleUpload builds a submitted multipart article post carrying one featured image
func articleUpload(categoryID int64, filename, contentType string, content []byte) *http.Request {
	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	mw.WriteField("title", "Avec image")
	mw.WriteField("category", strconv.FormatInt(categoryID, 10))
	mw.WriteField("content", "Body")
	mw.WriteField("submit", "1")
	h := make(textproto.MIMEHeader)
	h.Set("Content-Disposition", `form-data; name="featuredImage"; filename="`+filename+`"`)
	h.Set("Content-Type", contentType)
	part, _ := mw.CreatePart(h)
	part.Write(content)
	mw.Close()

	req := httptest.NewRequest(http.MethodPost, "/article/creer-un-article", &body)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	return req
}

// savedArticle loads the article a creation redirect points to
func (env *testEnv) savedArticle(t *testing.T, w *httptest.ResponseRecorder) *models.Article {
	t.Helper()
	if w.Code != http.StatusSeeOther {
		t.Fatalf("POST = %d: %s", w.Code, w.Body.String())
	}
	loc := w.Header().Get("Location")
	id, err := strconv.ParseInt(loc[strings.LastIndex(loc, "/")+1:], 10, 64)
	if err != nil {
		t.Fatalf("redirect = %q", loc)
	}
	a, err := env.db.GetArticleByID(context.Background(), id)
	if err != nil {
		t.Fatal(err)
	}
	return a
}

func TestArticleCreateWithUpload(t *testing.T) {
	env := newTestEnv(t)
	cookie := env.login(t, "j@example.com", models.RoleUser, models.RoleJournalist)

	a := env.savedArticle(t, env.do(articleUpload(env.techID, "Ma Photo.png", "image/png", pngBytes), cookie))
	if !regexp.MustCompile(`^ma-photo-[0-9a-f]{32}\.png$`).MatchString(a.FeaturedImage) {
		t.Fatalf("featured image = %q", a.FeaturedImage)
	}
	if _, err := os.Stat(filepath.Join(env.imagesDir, a.FeaturedImage)); err != nil {
		t.Errorf("uploaded file missing: %v", err)
	}

	// the stored image is served under the uploads prefix
	w := env.do(httptest.NewRequest(http.MethodGet, "/uploads/images/"+a.FeaturedImage, nil))
	if w.Code != http.StatusOK {
		t.Errorf("serving upload = %d", w.Code)
	}
}

func TestArticleCreateUploadLabelIgnored(t *testing.T) {
	testCases := []struct {
		label     string
		content   []byte
		wantImage bool
	}{
		{"application/octet-stream", pngBytes, true},
		{"application/pdf", pngBytes, true},
		{"image/png", []byte("%PDF-1.4\n%\xe2\xe3\xcf\xd3\n1 0 obj\n"), false},
		{"application/pdf", []byte("%PDF-1.4\n%\xe2\xe3\xcf\xd3\n1 0 obj\n"), false},
	}

	for _, tc := range testCases {
		env := newTestEnv(t)
		cookie := env.login(t, "j@example.com", models.RoleUser, models.RoleJournalist)

		w := env.do(articleUpload(env.techID, "photo.png", tc.label, tc.content), cookie)
		a := env.savedArticle(t, w)
		if got := a.FeaturedImage != ""; got != tc.wantImage {
			t.Errorf("label %q: featured image = %q, want stored=%t", tc.label, a.FeaturedImage, tc.wantImage)
		}
		if n, _ := env.db.CountArticles(context.Background()); n != 1 {
			t.Errorf("label %q: %d articles persisted, want 1", tc.label, n)
		}

		// a dropped image is reported next to the success notice
		page := env.do(httptest.NewRequest(http.MethodGet, w.Header().Get("Location"), nil), cookie, cookieFrom(w, flashCookieName))
		body := page.Body.String()
		if !strings.Contains(body, msgArticlePublished) {
			t.Errorf("label %q: success notice missing", tc.label)
		}
		if got := strings.Contains(body, "flash-error"); got == tc.wantImage {
			t.Errorf("label %q: error notice shown=%t, want %t", tc.label, got, !tc.wantImage)
		}
	}
}

func TestRegistration(t *testing.T) {
	env := newTestEnv(t)

	w := env.do(httptest.NewRequest(http.MethodGet, "/membre/inscription", nil))
	if w.Code != http.StatusOK || !strings.Contains(w.Body.String(), `type="password"`) {
		t.Fatalf("GET = %d", w.Code)
	}

	w = env.do(postForm("/membre/inscription", url.Values{
		"firstname": {"Ada"},
		"lastname":  {"Lovelace"},
		"email":     {"ada@example.com"},
		"password":  {"clear-text"},
		"submit":    {"1"},
	}))
	if w.Code != http.StatusSeeOther || w.Header().Get("Location") != "/" {
		t.Fatalf("POST = %d %s", w.Code, w.Header().Get("Location"))
	}

	u, err := env.db.GetUserByEmail(context.Background(), "ada@example.com")
	if err != nil {
		t.Fatal(err)
	}
	if u.Password == "clear-text" || !newsroom.CheckPassword("clear-text", u.Password) {
		t.Errorf("stored password is not a digest of the input")
	}
	if len(u.Roles) != 1 || u.Roles[0] != models.RoleUser {
		t.Errorf("roles = %v", u.Roles)
	}

	flash := cookieFrom(w, flashCookieName)
	if flash == nil {
		t.Fatal("no flash cookie set")
	}
	w = env.do(httptest.NewRequest(http.MethodGet, "/", nil), flash)
	if !strings.Contains(w.Body.String(), msgRegistered) {
		t.Errorf("index lacks registration flash")
	}
	w = env.do(httptest.NewRequest(http.MethodGet, "/", nil), flash)
	if strings.Contains(w.Body.String(), msgRegistered) {
		t.Errorf("registration flash shown twice")
	}
}

func TestErrorPageKeepsFlash(t *testing.T) {
	env := newTestEnv(t)
	w := env.do(postForm("/membre/inscription", url.Values{
		"firstname": {"Ada"}, "lastname": {"Lovelace"},
		"email": {"ada@example.com"}, "password": {"pw"}, "submit": {"1"},
	}))
	flash := cookieFrom(w, flashCookieName)
	if flash == nil {
		t.Fatal("no flash cookie set")
	}

	w = env.do(httptest.NewRequest(http.MethodGet, "/nope/nothing/42", nil), flash)
	if w.Code != http.StatusNotFound {
		t.Fatalf("missing article = %d", w.Code)
	}
	if strings.Contains(w.Body.String(), msgRegistered) {
		t.Errorf("error page consumed the flash")
	}

	w = env.do(httptest.NewRequest(http.MethodGet, "/", nil), flash)
	if !strings.Contains(w.Body.String(), msgRegistered) {
		t.Errorf("flash lost after error page")
	}
}

func TestRegistrationInvalidAndDuplicate(t *testing.T) {
	env := newTestEnv(t)
	valid := url.Values{
		"firstname": {"Ada"}, "lastname": {"Lovelace"},
		"email": {"ada@example.com"}, "password": {"pw"}, "submit": {"1"},
	}

	bad := url.Values{"firstname": {"Ada"}, "email": {"nope"}, "submit": {"1"}}
	w := env.do(postForm("/membre/inscription", bad))
	if w.Code != http.StatusOK || !strings.Contains(w.Body.String(), `class="error"`) {
		t.Errorf("invalid POST = %d", w.Code)
	}

	if w := env.do(postForm("/membre/inscription", valid)); w.Code != http.StatusSeeOther {
		t.Fatalf("first registration = %d", w.Code)
	}
	w = env.do(postForm("/membre/inscription", valid))
	if w.Code != http.StatusOK || !strings.Contains(w.Body.String(), "existe déjà") {
		t.Errorf("duplicate registration = %d", w.Code)
	}
}

func TestRegistrationDisabled(t *testing.T) {
	env := newTestEnv(t)
	if err := env.db.SetConfigBool(context.Background(), "registration_enabled", false); err != nil {
		t.Fatal(err)
	}
	w := env.do(httptest.NewRequest(http.MethodGet, "/membre/inscription", nil))
	if w.Code != http.StatusForbidden {
		t.Errorf("GET with registration off = %d, want 403", w.Code)
	}
}

func TestLoginLogout(t *testing.T) {
	env := newTestEnv(t)
	digest, _ := newsroom.NewBcryptHasher(4).Hash(&models.User{}, "secret")
	u := &models.User{FirstName: "L", LastName: "L", Email: "l@example.com", Password: digest, Roles: []string{models.RoleUser}}
	if _, err := env.db.SaveUser(context.Background(), u); err != nil {
		t.Fatal(err)
	}

	w := env.do(postForm("/login", url.Values{"email": {"l@example.com"}, "password": {"wrong"}}))
	if w.Code != http.StatusUnauthorized {
		t.Errorf("wrong password = %d", w.Code)
	}

	w = env.do(postForm("/login", url.Values{"email": {"l@example.com"}, "password": {"secret"}, "redirect": {"//evil.example"}}))
	if w.Code != http.StatusSeeOther || w.Header().Get("Location") != "/" {
		t.Fatalf("login = %d %s", w.Code, w.Header().Get("Location"))
	}
	session := cookieFrom(w, sessionCookieName)
	if session == nil || session.Value == "" {
		t.Fatal("no session cookie")
	}

	w = env.do(httptest.NewRequest(http.MethodGet, "/logout", nil), session)
	if w.Code != http.StatusSeeOther {
		t.Errorf("logout = %d", w.Code)
	}
	if _, err := env.db.ValidateUserSession(context.Background(), session.Value); err == nil {
		t.Error("session still valid after logout")
	}
}

func TestRateLimiter(t *testing.T) {
	rl := NewRateLimiter(1, 2)
	defer rl.Stop()
	if !rl.Allow("1.2.3.4") || !rl.Allow("1.2.3.4") {
		t.Fatal("burst not honored")
	}
	if rl.Allow("1.2.3.4") {
		t.Error("third immediate request allowed")
	}
	if !rl.Allow("5.6.7.8") {
		t.Error("limit leaked across clients")
	}

	off := NewRateLimiter(0, 0)
	for i := 0; i < 100; i++ {
		if !off.Allow("x") {
			t.Fatal("disabled limiter rejected a request")
		}
	}
}

func TestSafeRedirect(t *testing.T) {
	testCases := map[string]string{
		"":                          "/",
		"/article/creer-un-article": "/article/creer-un-article",
		"//evil.example":            "/",
		"https://evil.example":      "/",
		"/\\evil":                   "/",
	}
	for in, want := range testCases {
		if got := safeRedirect(in); got != want {
			t.Errorf("safeRedirect(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestAdminRegistrationToggle(t *testing.T) {
	env := newTestEnv(t)
	journalist := env.login(t, "j@example.com", models.RoleUser, models.RoleJournalist)
	admin := env.login(t, "admin@example.com", models.RoleUser, models.RoleAdmin)

	w := env.do(httptest.NewRequest(http.MethodPost, "/admin/registration/disable", nil), journalist)
	if w.Code != http.StatusForbidden {
		t.Errorf("non-admin toggle = %d, want 403", w.Code)
	}

	w = env.do(httptest.NewRequest(http.MethodPost, "/admin/registration/disable", nil), admin)
	if w.Code != http.StatusSeeOther {
		t.Fatalf("admin disable = %d", w.Code)
	}
	if enabled, _ := env.db.IsRegistrationEnabled(context.Background()); enabled {
		t.Error("registration still enabled")
	}
	if w := env.do(httptest.NewRequest(http.MethodGet, "/membre/inscription", nil)); w.Code != http.StatusForbidden {
		t.Errorf("registration page after disable = %d", w.Code)
	}

	env.do(httptest.NewRequest(http.MethodPost, "/admin/registration/enable", nil), admin)
	if enabled, _ := env.db.IsRegistrationEnabled(context.Background()); !enabled {
		t.Error("registration not re-enabled")
	}
}

func TestFlashStoreOneCookiePerRequest(t *testing.T) {
	gin.SetMode(gin.TestMode)
	fs := NewFlashStore()

	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Request = httptest.NewRequest(http.MethodPost, "/", nil)
	fs.SetFlashSuccess(c, "first")
	fs.SetFlashError(c, "second")

	var cookies []*http.Cookie
	for _, ck := range w.Result().Cookies() {
		if ck.Name == flashCookieName {
			cookies = append(cookies, ck)
		}
	}
	if len(cookies) != 1 {
		t.Fatalf("%d flash cookies set, want 1", len(cookies))
	}

	c2, _ := gin.CreateTestContext(httptest.NewRecorder())
	c2.Request = httptest.NewRequest(http.MethodGet, "/", nil)
	c2.Request.AddCookie(cookies[0])
	got := fs.Pop(c2)
	if len(got) != 2 || got[0].Type != FlashSuccess || got[1].Type != FlashError {
		t.Fatalf("Pop = %+v", got)
	}
	if again := fs.Pop(c2); len(again) != 0 {
		t.Errorf("second Pop = %+v", again)
	}
	if n := fs.Cleanup(); n != 0 {
		t.Errorf("Cleanup removed %d fresh entries", n)
	}
}
