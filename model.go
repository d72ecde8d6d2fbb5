package demostf

import (
	"bytes"
	"crypto/md5"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"strconv"
	"time"
)

// SteamID is a 64-bit platform-assigned player identifier. The API
// emits these as JSON strings since they exceed the safe integer range
// of most JSON consumers; both string and numeric forms are accepted.
type SteamID uint64

func (s SteamID) String() string {
	return strconv.FormatUint(uint64(s), 10)
}

func (s SteamID) MarshalJSON() ([]byte, error) {
	return json.Marshal(s.String())
}

func (s *SteamID) UnmarshalJSON(data []byte) error {
	raw := string(bytes.Trim(data, `"`))

	id, err := strconv.ParseUint(raw, 10, 64)
	if err != nil {
		return fmt.Errorf("parsing steam id %q: %w", raw, err)
	}

	*s = SteamID(id)

	return nil
}

// Digest is a 16 byte MD5 content hash, hex-encoded on the wire. An
// empty string decodes to the zero digest, the service's sentinel for
// "no hash recorded yet".
type Digest [md5.Size]byte

func (d Digest) String() string {
	return hex.EncodeToString(d[:])
}

// IsZero reports whether no hash has been recorded.
func (d Digest) IsZero() bool {
	return d == Digest{}
}

func (d Digest) MarshalJSON() ([]byte, error) {
	return json.Marshal(d.String())
}

func (d *Digest) UnmarshalJSON(data []byte) error {
	var raw string
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}

	if raw == "" {
		*d = Digest{}
		return nil
	}

	decoded, err := hex.DecodeString(raw)
	if err != nil {
		return fmt.Errorf("decoding hash %q: %w", raw, err)
	}
	if len(decoded) != md5.Size {
		return fmt.Errorf("decoding hash %q: expected %d bytes, got %d", raw, md5.Size, len(decoded))
	}

	copy(d[:], decoded)

	return nil
}

// Timestamp is a point in time encoded as integer Unix epoch seconds.
type Timestamp struct {
	time.Time
}

func (t Timestamp) MarshalJSON() ([]byte, error) {
	return json.Marshal(t.Unix())
}

func (t *Timestamp) UnmarshalJSON(data []byte) error {
	var epoch int64
	if err := json.Unmarshal(data, &epoch); err != nil {
		return err
	}

	t.Time = time.Unix(epoch, 0).UTC()

	return nil
}

// User holds the account data of a demos.tf user.
type User struct {
	ID      uint32  `json:"id"`
	SteamID SteamID `json:"steamid"`
	Name    string  `json:"name"`
}

// UserRef references a user, either as a fully embedded [User] or as a
// bare numeric id. The API embeds the full record on single-item
// fetches and sends only the id on list responses.
type UserRef struct {
	id   uint32
	user *User
}

// EmbeddedUser builds a reference holding the full user record.
func EmbeddedUser(user User) UserRef {
	return UserRef{id: user.ID, user: &user}
}

// UserID builds a reference holding only a user id.
func UserID(id uint32) UserRef {
	return UserRef{id: id}
}

// ID returns the referenced user's id, available for both variants.
func (r UserRef) ID() uint32 {
	return r.id
}

// User returns the embedded user record, or false when the reference
// holds only an id.
func (r UserRef) User() (User, bool) {
	if r.user == nil {
		return User{}, false
	}

	return *r.user, true
}

func (r *UserRef) UnmarshalJSON(data []byte) error {
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) > 0 && trimmed[0] == '{' {
		var user User
		if err := json.Unmarshal(trimmed, &user); err != nil {
			return err
		}

		*r = EmbeddedUser(user)

		return nil
	}

	var id uint32
	if err := json.Unmarshal(trimmed, &id); err != nil {
		return fmt.Errorf("parsing user reference: %w", err)
	}

	*r = UserID(id)

	return nil
}

func (r UserRef) MarshalJSON() ([]byte, error) {
	if r.user != nil {
		return json.Marshal(*r.user)
	}

	return json.Marshal(r.id)
}

// Team is the side a player was on.
type Team string

const (
	TeamRed  Team = "red"
	TeamBlue Team = "blue"
)

// Class is one of the nine playable character classes.
type Class string

const (
	ClassScout    Class = "scout"
	ClassSoldier  Class = "soldier"
	ClassPyro     Class = "pyro"
	ClassDemoman  Class = "demoman"
	ClassHeavy    Class = "heavyweapons"
	ClassEngineer Class = "engineer"
	ClassMedic    Class = "medic"
	ClassSniper   Class = "sniper"
	ClassSpy      Class = "spy"
)

// Player is a single player's row in a demo's scoreboard.
type Player struct {
	ID   uint32
	User User
	Team Team
	// Class is the class the player spawned as most often during the match.
	Class   Class
	Kills   uint8
	Assists uint8
	Deaths  uint8
}

// The API nests the player's user data in renamed fields alongside the
// row itself; flatten it into an embedded [User] on decode.
func (p *Player) UnmarshalJSON(data []byte) error {
	var raw struct {
		ID      uint32  `json:"id"`
		UserID  uint32  `json:"user_id"`
		SteamID SteamID `json:"steamid"`
		Name    string  `json:"name"`
		Team    Team    `json:"team"`
		Class   Class   `json:"class"`
		Kills   uint8   `json:"kills"`
		Assists uint8   `json:"assists"`
		Deaths  uint8   `json:"deaths"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}

	*p = Player{
		ID: raw.ID,
		User: User{
			ID:      raw.UserID,
			SteamID: raw.SteamID,
			Name:    raw.Name,
		},
		Team:    raw.Team,
		Class:   raw.Class,
		Kills:   raw.Kills,
		Assists: raw.Assists,
		Deaths:  raw.Deaths,
	}

	return nil
}

// ChatMessage is a single in-game chat line. The sender is recorded by
// display name only, not as a user reference.
type ChatMessage struct {
	User string `json:"user"`
	// Time is seconds from match start.
	Time    uint32 `json:"time"`
	Message string `json:"message"`
}

// Demo is a recorded game match file plus its metadata.
type Demo struct {
	ID   uint32 `json:"id"`
	URL  string `json:"url"`
	Name string `json:"name"`
	// Server is the game server the match was recorded on.
	Server string `json:"server"`
	// Duration of the recorded match in seconds.
	Duration uint16 `json:"duration"`
	// Nick is the uploader's nickname at upload time.
	Nick string    `json:"nick"`
	Map  string    `json:"map"`
	Time Timestamp `json:"time"`
	// Red and Blue are the team names, RedScore and BlueScore their
	// final scores.
	Red         string  `json:"red"`
	Blue        string  `json:"blue"`
	RedScore    uint8   `json:"redScore"`
	BlueScore   uint8   `json:"blueScore"`
	PlayerCount uint8   `json:"playerCount"`
	Uploader    UserRef `json:"uploader"`
	Hash        Digest  `json:"hash"`
	// Backend and Path identify where the demo's binary content is
	// physically stored, independent of this metadata record.
	Backend string `json:"backend"`
	Path    string `json:"path"`
	// Players is only populated on single-item fetches; list responses
	// omit it to keep payloads small. Use [Demo.GetPlayers] to load it
	// transparently.
	Players []Player `json:"players,omitempty"`
}
