package notify

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNormalizePhone(t *testing.T) {
	assert.Equal(t, "+2348012345678", NormalizePhone("whatsapp:+2348012345678"))
	assert.Equal(t, "+2348012345678", NormalizePhone("+2348012345678"))
	assert.Equal(t, "+2348012345678", NormalizePhone("  whatsapp:+2348012345678 "))
}

func TestSendPostsTwilioForm(t *testing.T) {
	var gotPath, gotFrom, gotTo, gotBody string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		user, _, ok := r.BasicAuth()
		require.True(t, ok)
		assert.Equal(t, "SKkey", user)

		require.NoError(t, r.ParseForm())
		gotPath = r.URL.Path
		gotFrom = r.PostFormValue("From")
		gotTo = r.PostFormValue("To")
		gotBody = r.PostFormValue("Body")
		w.WriteHeader(http.StatusCreated)
		w.Write([]byte(`{"sid": "SM123"}`))
	}))
	defer srv.Close()

	w := New(Config{
		AccountSID:     "AC123",
		APIKeySID:      "SKkey",
		APIKeySecret:   "secret",
		WhatsAppNumber: "+14155550100",
		BaseURL:        srv.URL,
		Timeout:        2,
	})

	err := w.Send(context.Background(), "+2348012345678", "hello")

	require.NoError(t, err)
	assert.Equal(t, "/2010-04-01/Accounts/AC123/Messages.json", gotPath)
	assert.Equal(t, "whatsapp:+14155550100", gotFrom)
	assert.Equal(t, "whatsapp:+2348012345678", gotTo)
	assert.Equal(t, "hello", gotBody)
}

func TestSendUnconfigured(t *testing.T) {
	w := New(Config{})

	err := w.Send(context.Background(), "+2348012345678", "hello")

	assert.Error(t, err)
}

func TestSendErrorStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, `{"message": "bad number"}`, http.StatusBadRequest)
	}))
	defer srv.Close()

	w := New(Config{AccountSID: "AC123", AuthToken: "token", BaseURL: srv.URL, Timeout: 2})

	err := w.Send(context.Background(), "bogus", "hello")

	assert.ErrorContains(t, err, "status 400")
}
