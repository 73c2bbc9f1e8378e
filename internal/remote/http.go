package remote

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/url"
	"strconv"

	pkgerrors "github.com/pkg/errors"

	"sealchat/internal/domain"
	"sealchat/internal/errs"
)

// HTTPClient speaks JSON over HTTP to the platform's store gateway. Transport
// security and auth tokens are the surrounding platform's concern; the client
// only maps response codes onto the error taxonomy.
type HTTPClient struct {
	Base string
	HTTP *http.Client
}

// NewHTTP returns a client for the given base URL.
func NewHTTP(base string, httpClient *http.Client) *HTTPClient {
	if httpClient == nil {
		httpClient = http.DefaultClient
	}
	return &HTTPClient{Base: base, HTTP: httpClient}
}

func (c *HTTPClient) SaveUserKey(ctx context.Context, key domain.UserKey) error {
	return c.post(ctx, "/keys", key, nil)
}

func (c *HTTPClient) CurrentUserKey(ctx context.Context, user domain.UserID) (domain.UserKey, bool, error) {
	var out domain.UserKey
	err := c.getJSON(ctx, "/keys/"+url.PathEscape(user.String())+"/current", &out)
	if errs.Is(err, errs.KindNotFound) {
		return domain.UserKey{}, false, nil
	}
	if err != nil {
		return domain.UserKey{}, false, err
	}
	return out, true, nil
}

func (c *HTTPClient) RevokeUserKeys(ctx context.Context, user domain.UserID) error {
	return c.post(ctx, "/keys/"+url.PathEscape(user.String())+"/revoke", nil, nil)
}

func (c *HTTPClient) GetConversation(ctx context.Context, p1, p2 domain.UserID) (domain.Conversation, bool, error) {
	var out domain.Conversation
	path := "/conversations/lookup?p1=" + url.QueryEscape(p1.String()) +
		"&p2=" + url.QueryEscape(p2.String())
	err := c.getJSON(ctx, path, &out)
	if errs.Is(err, errs.KindNotFound) {
		return domain.Conversation{}, false, nil
	}
	if err != nil {
		return domain.Conversation{}, false, err
	}
	return out, true, nil
}

func (c *HTTPClient) ConversationByID(ctx context.Context, id domain.ConversationID) (domain.Conversation, bool, error) {
	var out domain.Conversation
	err := c.getJSON(ctx, "/conversations/"+url.PathEscape(id.String()), &out)
	if errs.Is(err, errs.KindNotFound) {
		return domain.Conversation{}, false, nil
	}
	if err != nil {
		return domain.Conversation{}, false, err
	}
	return out, true, nil
}

func (c *HTTPClient) CreateConversation(ctx context.Context, p1, p2 domain.UserID) (domain.Conversation, error) {
	var out domain.Conversation
	in := domain.Conversation{Participant1: p1, Participant2: p2}
	if err := c.post(ctx, "/conversations", in, &out); err != nil {
		return domain.Conversation{}, err
	}
	return out, nil
}

func (c *HTTPClient) InsertMessage(ctx context.Context, m domain.Message) (domain.Message, error) {
	var out domain.Message
	if err := c.post(ctx, "/messages", m, &out); err != nil {
		return domain.Message{}, err
	}
	return out, nil
}

func (c *HTTPClient) ListMessages(
	ctx context.Context,
	conversation domain.ConversationID,
	afterSeq int64,
	limit int,
) ([]domain.Message, error) {
	path := "/conversations/" + url.PathEscape(conversation.String()) + "/messages" +
		"?after=" + strconv.FormatInt(afterSeq, 10)
	if limit > 0 {
		path += "&limit=" + strconv.Itoa(limit)
	}
	var out []domain.Message
	if err := c.getJSON(ctx, path, &out); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *HTTPClient) EditMessage(ctx context.Context, id domain.MessageID, ciphertext, iv []byte) error {
	return c.post(ctx, "/messages/"+url.PathEscape(id.String())+"/edit", struct {
		Ciphertext []byte `json:"encrypted_content"`
		IV         []byte `json:"initialization_vector"`
	}{ciphertext, iv}, nil)
}

func (c *HTTPClient) DeleteMessage(ctx context.Context, id domain.MessageID) error {
	return c.post(ctx, "/messages/"+url.PathEscape(id.String())+"/delete", nil, nil)
}

func (c *HTTPClient) MarkRead(ctx context.Context, id domain.MessageID) error {
	return c.post(ctx, "/messages/"+url.PathEscape(id.String())+"/read", nil, nil)
}

func (c *HTTPClient) WelcomeSent(ctx context.Context, user domain.UserID) (bool, error) {
	var out struct {
		Sent bool `json:"sent"`
	}
	if err := c.getJSON(ctx, "/profiles/"+url.PathEscape(user.String())+"/welcome", &out); err != nil {
		return false, err
	}
	return out.Sent, nil
}

func (c *HTTPClient) SetWelcomeSent(ctx context.Context, user domain.UserID) error {
	return c.post(ctx, "/profiles/"+url.PathEscape(user.String())+"/welcome", nil, nil)
}

func (c *HTTPClient) UpsertTyping(ctx context.Context, state domain.TypingState) error {
	return c.post(ctx, "/typing", state, nil)
}

func (c *HTTPClient) post(ctx context.Context, path string, in, out any) error {
	buf := new(bytes.Buffer)
	if in != nil {
		if err := json.NewEncoder(buf).Encode(in); err != nil {
			return err
		}
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.Base+path, buf)
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	return c.do(req, path, out)
}

func (c *HTTPClient) getJSON(ctx context.Context, path string, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.Base+path, nil)
	if err != nil {
		return err
	}
	return c.do(req, path, out)
}

func (c *HTTPClient) do(req *http.Request, path string, out any) error {
	resp, err := c.HTTP.Do(req)
	if err != nil {
		return errs.Connection("remote store unreachable", pkgerrors.Wrapf(err, "%s %s", req.Method, path))
	}
	defer resp.Body.Close()

	if resp.StatusCode/100 != 2 {
		return statusError(resp.StatusCode, req.Method, path)
	}
	if out != nil {
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			return errs.Connection("decode remote response", pkgerrors.Wrapf(err, "%s %s", req.Method, path))
		}
	}
	return nil
}

// statusError maps gateway responses onto the shared error taxonomy.
func statusError(code int, method, path string) error {
	switch code {
	case http.StatusNotFound:
		return errs.NotFound(method + " " + path + ": not found")
	case http.StatusConflict:
		return errs.Conflict(method + " " + path + ": conflict")
	case http.StatusBadRequest, http.StatusUnprocessableEntity:
		return errs.Validation(method + " " + path + ": rejected")
	case http.StatusUnauthorized, http.StatusForbidden:
		return errs.New(errs.KindAuthentication, method+" "+path+": not authorized")
	default:
		return errs.Connection(method+" "+path, pkgerrors.Errorf("status %d", code))
	}
}

// Compile-time assertion that HTTPClient implements domain.RemoteStore.
var _ domain.RemoteStore = (*HTTPClient)(nil)
