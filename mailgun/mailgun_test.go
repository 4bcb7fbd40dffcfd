package mailgun

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"

	"github.com/kalabox/email"
	"github.com/mailgun/mailgun-go/v4"
)

// newTestServer records the form posted to the messages endpoint and replies
// with status.
func newTestServer(t *testing.T, status int, form *url.Values) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !strings.HasSuffix(r.URL.Path, "/messages") {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		user, pass, ok := r.BasicAuth()
		if !ok || user != "api" || pass != "key-123" {
			t.Errorf("expected basic auth api:key-123, got %s:%s", user, pass)
		}
		_ = r.ParseMultipartForm(1 << 20)
		if form != nil {
			*form = r.Form
		}
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		if status == http.StatusOK {
			_, _ = w.Write([]byte(`{"message":"Queued. Thank you.","id":"<1@example.com>"}`))
			return
		}
		_, _ = w.Write([]byte(`{"message":"error"}`))
	}))
	t.Cleanup(srv.Close)
	return srv
}

func newTestSender(t *testing.T, srv *httptest.Server) *MailgunSender {
	t.Helper()
	sender, err := New(email.Credentials{APIKey: "key-123", Domain: "example.com"}, Options{APIBase: srv.URL + "/v3"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	return sender
}

func TestNew_MissingCredentials(t *testing.T) {
	tests := []struct {
		name  string
		creds email.Credentials
	}{
		{name: "missing api key", creds: email.Credentials{Domain: "example.com"}},
		{name: "missing domain", creds: email.Credentials{APIKey: "key-123"}},
		{name: "missing both", creds: email.Credentials{}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			sender, err := New(tt.creds, Options{})
			if sender != nil {
				t.Error("expected nil sender")
			}

			var emailErr *email.Error
			if !errors.As(err, &emailErr) {
				t.Fatalf("expected email.Error, got %T", err)
			}
			if emailErr.Reason != email.REASON_CONFIG_ERROR {
				t.Errorf("expected error reason %s, got %s", email.REASON_CONFIG_ERROR, emailErr.Reason)
			}
		})
	}
}

func TestSendRaw_Success(t *testing.T) {
	var form url.Values
	srv := newTestServer(t, http.StatusOK, &form)
	sender := newTestSender(t, srv)

	out := email.Outgoing{
		From:       "drew@carey.com",
		To:         "a@x.com, b@x.com",
		Recipients: []string{"a@x.com", "b@x.com"},
		Subject:    "test subject",
		Text:       "test text",
		Extra: map[string]string{
			"cc":         "c@x.com",
			"html":       "<p>test</p>",
			"h:Reply-To": "reply@x.com",
			"o:tag":      "weekly, digest",
			"v:user":     "bob",
		},
	}

	if err := sender.SendRaw(context.Background(), out); err != nil {
		t.Fatalf("expected no error, got %v", err)
	}

	if got := form.Get("from"); got != out.From {
		t.Errorf("expected from %s, got %s", out.From, got)
	}
	if got := form["to"]; len(got) != 2 || got[0] != "a@x.com" || got[1] != "b@x.com" {
		t.Errorf("expected to [a@x.com b@x.com], got %v", got)
	}
	if got := form.Get("subject"); got != out.Subject {
		t.Errorf("expected subject %s, got %s", out.Subject, got)
	}
	if got := form.Get("text"); got != out.Text {
		t.Errorf("expected text %s, got %s", out.Text, got)
	}
	if got := form.Get("cc"); got != "c@x.com" {
		t.Errorf("expected cc c@x.com, got %s", got)
	}
	if got := form.Get("html"); got != "<p>test</p>" {
		t.Errorf("expected html, got %s", got)
	}
	if got := form.Get("h:Reply-To"); got != "reply@x.com" {
		t.Errorf("expected Reply-To header, got %s", got)
	}
	if got := form["o:tag"]; len(got) != 2 {
		t.Errorf("expected 2 tags, got %v", got)
	}
	if got := form.Get("v:user"); !strings.Contains(got, "bob") {
		t.Errorf("expected variable user=bob, got %s", got)
	}
}

func TestSendRaw_MailgunErrors(t *testing.T) {
	tests := []struct {
		name          string
		status        int
		expectedError email.ErrorReason
	}{
		{name: "bad request", status: http.StatusBadRequest, expectedError: email.REASON_VALIDATION_ERROR},
		{name: "unauthorized", status: http.StatusUnauthorized, expectedError: email.REASON_AUTH_ERROR},
		{name: "forbidden", status: http.StatusForbidden, expectedError: email.REASON_UNVERIFIED_DOMAIN},
		{name: "domain not found", status: http.StatusNotFound, expectedError: email.REASON_UNVERIFIED_DOMAIN},
		{name: "too large", status: http.StatusRequestEntityTooLarge, expectedError: email.REASON_VALIDATION_ERROR},
		{name: "rate limited", status: http.StatusTooManyRequests, expectedError: email.REASON_RATE_LIMITED},
		{name: "server error", status: http.StatusInternalServerError, expectedError: email.REASON_SERVICE_ERROR},
		{name: "bad gateway", status: http.StatusBadGateway, expectedError: email.REASON_SERVICE_ERROR},
	}

	validMessage := email.Outgoing{
		From:       "sender@example.com",
		To:         "recipient@example.com",
		Recipients: []string{"recipient@example.com"},
		Subject:    "Test Subject",
		Text:       "Hello World",
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := newTestServer(t, tt.status, nil)
			sender := newTestSender(t, srv)

			err := sender.SendRaw(context.Background(), validMessage)
			if err == nil {
				t.Fatal("expected mailgun error, got nil")
			}

			var emailErr *email.Error
			if !errors.As(err, &emailErr) {
				t.Fatalf("expected email.Error, got %T", err)
			}
			if emailErr.Reason != tt.expectedError {
				t.Errorf("expected error reason %s, got %s", tt.expectedError, emailErr.Reason)
			}

			var respErr *mailgun.UnexpectedResponseError
			if !errors.As(err, &respErr) {
				t.Errorf("expected cause to be *mailgun.UnexpectedResponseError, got %v", emailErr.Cause)
			}
		})
	}
}

func TestCategorizeMailgunError(t *testing.T) {
	tests := []struct {
		name          string
		err           error
		expectedError email.ErrorReason
	}{
		{name: "deadline", err: context.DeadlineExceeded, expectedError: email.REASON_SERVICE_ERROR},
		{name: "plain error", err: errors.New("network error"), expectedError: email.REASON_UNKNOWN},
		{name: "unexpected 3xx", err: &mailgun.UnexpectedResponseError{Actual: http.StatusFound}, expectedError: email.REASON_UNKNOWN},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if !email.IsReason(categorizeMailgunError(tt.err), tt.expectedError) {
				t.Errorf("expected error reason %s", tt.expectedError)
			}
		})
	}
}
