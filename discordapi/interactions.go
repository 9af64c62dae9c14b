package discordapi

import (
	"bytes"
	"crypto/ed25519"
	"encoding/hex"
	"fmt"
	"io"
	"net/http"
)

// Interaction types received on the webhook.
const (
	InteractionPing               = 1
	InteractionApplicationCommand = 2
)

// Interaction response types.
const (
	ResponsePong           = 1
	ResponseChannelMessage = 4
)

// User is a Discord user as it appears in interaction payloads.
type User struct {
	ID         string `json:"id"`
	Username   string `json:"username"`
	GlobalName string `json:"global_name,omitempty"`
}

// DisplayName returns the user's preferred human-readable name.
func (u *User) DisplayName() string {
	if u == nil {
		return ""
	}
	if u.GlobalName != "" {
		return u.GlobalName
	}
	return u.Username
}

// Member is a guild member wrapper around a user, possibly with a nickname.
type Member struct {
	Nick string `json:"nick,omitempty"`
	User *User  `json:"user,omitempty"`
}

// DisplayName returns the member's nickname, falling back to the user name.
func (m *Member) DisplayName() string {
	if m == nil {
		return ""
	}
	if m.Nick != "" {
		return m.Nick
	}
	return m.User.DisplayName()
}

// ResolvedData carries full objects for entities referenced by option values.
type ResolvedData struct {
	Users map[string]User `json:"users,omitempty"`
}

// InteractionOption is one submitted option value. Both option types the bot
// declares (string and user) arrive as JSON strings.
type InteractionOption struct {
	Name  string `json:"name"`
	Type  int    `json:"type"`
	Value string `json:"value"`
}

// InteractionData is the command payload of an application command
// interaction.
type InteractionData struct {
	Name     string              `json:"name"`
	Options  []InteractionOption `json:"options,omitempty"`
	Resolved *ResolvedData       `json:"resolved,omitempty"`
}

// Option returns the named option's value and whether it was submitted.
func (d *InteractionData) Option(name string) (string, bool) {
	if d == nil {
		return "", false
	}
	for _, o := range d.Options {
		if o.Name == name {
			return o.Value, true
		}
	}
	return "", false
}

// ResolvedUser returns the resolved user object for a user-option value.
func (d *InteractionData) ResolvedUser(id string) (User, bool) {
	if d == nil || d.Resolved == nil {
		return User{}, false
	}
	u, ok := d.Resolved.Users[id]
	return u, ok
}

// Interaction is the envelope posted to the interactions webhook.
type Interaction struct {
	ID      string           `json:"id"`
	Type    int              `json:"type"`
	Data    *InteractionData `json:"data,omitempty"`
	GuildID string           `json:"guild_id,omitempty"`
	Member  *Member          `json:"member,omitempty"`
	User    *User            `json:"user,omitempty"`
}

// Sender returns the invoking user: the member's user in guilds, the bare
// user in DMs.
func (i *Interaction) Sender() *User {
	if i.Member != nil && i.Member.User != nil {
		return i.Member.User
	}
	return i.User
}

// SenderDisplayName returns the invoker's display name (nickname-aware).
func (i *Interaction) SenderDisplayName() string {
	if i.Member != nil {
		return i.Member.DisplayName()
	}
	return i.User.DisplayName()
}

// InteractionCallback is the message payload of a response.
type InteractionCallback struct {
	Content string `json:"content,omitempty"`
}

// InteractionResponse is the reply written back to the webhook request.
type InteractionResponse struct {
	Type int                  `json:"type"`
	Data *InteractionCallback `json:"data,omitempty"`
}

// PongResponse acknowledges a ping.
func PongResponse() InteractionResponse {
	return InteractionResponse{Type: ResponsePong}
}

// MessageResponse builds a plain-text channel message response.
func MessageResponse(content string) InteractionResponse {
	return InteractionResponse{Type: ResponseChannelMessage, Data: &InteractionCallback{Content: content}}
}

// ParsePublicKey decodes the hex-encoded Ed25519 application public key as
// shown in the developer portal.
func ParsePublicKey(hexKey string) (ed25519.PublicKey, error) {
	raw, err := hex.DecodeString(hexKey)
	if err != nil {
		return nil, fmt.Errorf("invalid public key: %w", err)
	}
	if len(raw) != ed25519.PublicKeySize {
		return nil, fmt.Errorf("invalid public key: got %d bytes, want %d", len(raw), ed25519.PublicKeySize)
	}
	return ed25519.PublicKey(raw), nil
}

// VerifyInteraction reports whether the request carries a valid Ed25519
// signature over timestamp+body per the interactions webhook contract. The
// body is restored afterwards so handlers can decode it.
func VerifyInteraction(r *http.Request, pubKey ed25519.PublicKey) bool {
	sigHex := r.Header.Get("X-Signature-Ed25519")
	ts := r.Header.Get("X-Signature-Timestamp")
	if sigHex == "" || ts == "" {
		return false
	}
	sig, err := hex.DecodeString(sigHex)
	if err != nil || len(sig) != ed25519.SignatureSize {
		return false
	}

	body, err := io.ReadAll(r.Body)
	if err != nil {
		return false
	}
	r.Body = io.NopCloser(bytes.NewReader(body))

	msg := make([]byte, 0, len(ts)+len(body))
	msg = append(msg, ts...)
	msg = append(msg, body...)
	return ed25519.Verify(pubKey, msg, sig)
}
