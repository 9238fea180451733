package mail

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"os"
	"strings"
	"time"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"
	"google.golang.org/api/gmail/v1"
	"google.golang.org/api/option"
)

const gmailUser = "me"

// GmailSource reads the authorized user's inbox through the Gmail API.
type GmailSource struct {
	svc *gmail.Service
}

// OAuthConfig loads the installed-app client from credentialsFile.
func OAuthConfig(credentialsFile string) (*oauth2.Config, error) {
	data, err := os.ReadFile(credentialsFile)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrCredentialsUnavailable, err)
	}
	cfg, err := google.ConfigFromJSON(data, gmail.GmailReadonlyScope)
	if err != nil {
		return nil, fmt.Errorf("%w: bad client file %s: %v", ErrCredentialsUnavailable, credentialsFile, err)
	}
	return cfg, nil
}

// NewGmailSource needs a client file and a token previously stored by Authorize.
func NewGmailSource(ctx context.Context, credentialsFile, tokenFile string) (*GmailSource, error) {
	cfg, err := OAuthConfig(credentialsFile)
	if err != nil {
		return nil, err
	}
	tok, err := LoadToken(tokenFile)
	if err != nil {
		return nil, err
	}

	svc, err := gmail.NewService(ctx, option.WithTokenSource(cfg.TokenSource(ctx, tok)))
	if err != nil {
		return nil, fmt.Errorf("failed to create gmail client: %w", err)
	}
	return &GmailSource{svc: svc}, nil
}

func (g *GmailSource) Latest(ctx context.Context) (*Message, error) {
	list, err := g.svc.Users.Messages.List(gmailUser).MaxResults(10).Context(ctx).Do()
	if err != nil {
		return nil, fmt.Errorf("failed to list messages: %w", err)
	}
	if len(list.Messages) == 0 {
		return nil, ErrNoMessages
	}

	m, err := g.svc.Users.Messages.Get(gmailUser, list.Messages[0].Id).Format("full").Context(ctx).Do()
	if err != nil {
		return nil, fmt.Errorf("failed to get message %s: %w", list.Messages[0].Id, err)
	}
	return fromGmail(m)
}

func fromGmail(m *gmail.Message) (*Message, error) {
	msg := &Message{ID: m.Id}
	if m.Payload == nil {
		return nil, fmt.Errorf("message %s has no payload", m.Id)
	}

	var dateHeader string
	for _, h := range m.Payload.Headers {
		switch strings.ToLower(h.Name) {
		case "subject":
			msg.Subject = h.Value
		case "date":
			dateHeader = h.Value
		}
	}

	if t, err := ParseMessageDate(dateHeader); err == nil {
		msg.Date = t
	} else if m.InternalDate > 0 {
		msg.Date = time.UnixMilli(m.InternalDate).UTC()
	} else {
		return nil, err
	}

	if err := collectBodies(m.Payload, msg); err != nil {
		return nil, fmt.Errorf("message %s: %w", m.Id, err)
	}
	return msg, nil
}

// collectBodies walks nested multipart parts keeping the first html and text bodies.
func collectBodies(part *gmail.MessagePart, msg *Message) error {
	if part.Body != nil && part.Body.Data != "" {
		mime := strings.ToLower(part.MimeType)
		if (mime == "text/html" && msg.HTML == "") || (mime == "text/plain" && msg.Text == "") {
			body, err := decodeBody(part.Body.Data)
			if err != nil {
				return err
			}
			if mime == "text/html" {
				msg.HTML = body
			} else {
				msg.Text = body
			}
		}
	}
	for _, p := range part.Parts {
		if err := collectBodies(p, msg); err != nil {
			return err
		}
	}
	return nil
}

func decodeBody(data string) (string, error) {
	b, err := base64.URLEncoding.DecodeString(data)
	if err != nil {
		b, err = base64.RawURLEncoding.DecodeString(strings.TrimRight(data, "="))
		if err != nil {
			return "", fmt.Errorf("failed to decode body: %w", err)
		}
	}
	return string(b), nil
}

func LoadToken(path string) (*oauth2.Token, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("%w: no token at %s, run gmail-auth first", ErrCredentialsUnavailable, path)
	}
	tok := &oauth2.Token{}
	if err := json.Unmarshal(data, tok); err != nil {
		return nil, fmt.Errorf("%w: bad token file %s: %v", ErrCredentialsUnavailable, path, err)
	}
	return tok, nil
}

func SaveToken(path string, tok *oauth2.Token) error {
	data, err := json.MarshalIndent(tok, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0600)
}

// Authorize runs the installed-app consent flow: it hands the consent URL to
// prompt, which returns the authorization code the user pasted back.
func Authorize(ctx context.Context, cfg *oauth2.Config, prompt func(url string) (string, error)) (*oauth2.Token, error) {
	url := cfg.AuthCodeURL("songsmith", oauth2.AccessTypeOffline)
	code, err := prompt(url)
	if err != nil {
		return nil, err
	}
	tok, err := cfg.Exchange(ctx, strings.TrimSpace(code))
	if err != nil {
		return nil, fmt.Errorf("failed to exchange authorization code: %w", err)
	}
	return tok, nil
}
