package emailsvc

import (
	"bytes"
	"encoding/json"
	"io"
	"log"
	"net/http"
	"net/http/httptest"
	"net/mail"
	"sync"
	"testing"
	"text/template"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/trezcool/nutridash/core"
	logsvc "github.com/trezcool/nutridash/services/logger"
)

var (
	conf   = core.NewTestConfig()
	logger = logsvc.NewRollbarLogger(log.New(io.Discard, "", 0), conf)
	alice  = mail.Address{Name: "Alice", Address: "alice@test.local"}
)

func TestConsoleServiceMock_SendMessages(t *testing.T) {
	var out bytes.Buffer
	svc := NewConsoleServiceMock(conf, logger, &out)

	svc.SendMessages(
		&core.EmailMessage{To: []mail.Address{alice}, Subject: "digest", BodyStr: "hello"},
		&core.EmailMessage{Subject: "no recipient", BodyStr: "dropped"},
		&core.EmailMessage{To: []mail.Address{alice}, Subject: "no content"},
		&core.EmailMessage{
			To:           []mail.Address{alice},
			Subject:      "templated",
			Template:     template.Must(template.New("t").Parse("{{.}} meals")),
			TemplateData: 42,
		},
	)

	sent := svc.Sent()
	if assert.Len(t, sent, 2) {
		assert.Equal(t, "hello", sent[0].TextContent)
		assert.Equal(t, "42 meals", sent[1].TextContent)
	}
	assert.Contains(t, out.String(), "Subject: ["+conf.AppName+"] digest\r\n")
	assert.Contains(t, out.String(), "To: \"Alice\" <alice@test.local>\r\n")
	assert.NotContains(t, out.String(), "dropped")
}

func TestSendgridService_send(t *testing.T) {
	received := make(chan map[string]interface{}, 1)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, endpoint, r.URL.Path)
		assert.Equal(t, "Bearer "+conf.Email.SendgridAPIKey, r.Header.Get("Authorization"))
		body, _ := io.ReadAll(r.Body)
		var payload map[string]interface{}
		_ = json.Unmarshal(body, &payload)
		received <- payload
		w.WriteHeader(http.StatusAccepted)
	}))
	defer srv.Close()

	svc := newSendgridService(conf, logger, srv.URL)
	msg := &core.EmailMessage{To: []mail.Address{alice}, Subject: "digest", BodyStr: "hello"}
	require.NoError(t, msg.Render())
	svc.send(*msg)

	payload := <-received
	p := payload["personalizations"].([]interface{})[0].(map[string]interface{})
	assert.Equal(t, "["+conf.AppName+"] digest", p["subject"])
	content := payload["content"].([]interface{})[0].(map[string]interface{})
	assert.Equal(t, "text/plain", content["type"])
	assert.Equal(t, "hello", content["value"])
}

func TestConsoleService_Wait(t *testing.T) {
	var out bytes.Buffer
	svc := &consoleService{defaultFromEmail: alice, logger: logger, out: &out, pending: new(sync.WaitGroup)}

	svc.SendMessages(&core.EmailMessage{To: []mail.Address{alice}, Subject: "one", BodyStr: "1"})
	svc.Wait()

	assert.Contains(t, out.String(), "Subject: one\r\n")
}
