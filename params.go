package demostf

import (
	"net/url"
	"strconv"
	"strings"
	"time"
)

// ListOrder is the sort direction for demo listings.
type ListOrder string

const (
	Ascending  ListOrder = "ASC"
	Descending ListOrder = "DESC"
)

// GameType is a game format recognized by demos.tf.
type GameType string

const (
	HL        GameType = "hl"
	Prolander GameType = "prolander"
	Sixes     GameType = "6v6"
	Fours     GameType = "4v4"
)

// ListParams is the filter and sort specification for [Client.List] and
// [Client.ListUploads]. The zero value lists everything, newest first.
// The With* methods return a modified copy, so params can be built up
// fluently:
//
//	params := demostf.ListParams{}.
//		WithOrder(demostf.Ascending).
//		WithMap("cp_gullywash_final1").
//		WithPlayers(76561198024494988)
type ListParams struct {
	order    ListOrder
	backend  string
	mapName  string
	players  []SteamID
	gameType GameType
	before   time.Time
	after    time.Time
	beforeID uint64
	afterID  uint64
}

// WithOrder sets the sort direction.
func (p ListParams) WithOrder(order ListOrder) ListParams {
	p.order = order
	return p
}

// WithBackend filters demos by storage backend name.
func (p ListParams) WithBackend(backend string) ListParams {
	p.backend = backend
	return p
}

// WithMap filters demos by map name.
func (p ListParams) WithMap(mapName string) ListParams {
	p.mapName = mapName
	return p
}

// WithPlayers filters demos to those containing all given players.
// Insertion order is preserved in the encoded query.
func (p ListParams) WithPlayers(players ...SteamID) ListParams {
	p.players = append([]SteamID(nil), players...)
	return p
}

// WithType filters demos by game format.
func (p ListParams) WithType(gameType GameType) ListParams {
	p.gameType = gameType
	return p
}

// WithBefore filters to demos uploaded before the given time.
func (p ListParams) WithBefore(before time.Time) ListParams {
	p.before = before
	return p
}

// WithAfter filters to demos uploaded after the given time.
func (p ListParams) WithAfter(after time.Time) ListParams {
	p.after = after
	return p
}

// WithBeforeID filters to demos with an id below the given bound.
func (p ListParams) WithBeforeID(id uint64) ListParams {
	p.beforeID = id
	return p
}

// WithAfterID filters to demos with an id above the given bound.
func (p ListParams) WithAfterID(id uint64) ListParams {
	p.afterID = id
	return p
}

// Values encodes the params into the API's filter grammar. The order
// and players pairs are always present (an empty player set encodes as
// an empty string), other unset fields are omitted, the player set
// joins as comma-separated decimals, and times encode as integer epoch
// seconds. This is a total function over well-typed input.
func (p ListParams) Values() url.Values {
	values := url.Values{}

	order := p.order
	if order == "" {
		order = Descending
	}
	values.Set("order", string(order))

	if p.backend != "" {
		values.Set("backend", p.backend)
	}
	if p.mapName != "" {
		values.Set("map", p.mapName)
	}
	values.Set("players", encodePlayers(p.players))
	if p.gameType != "" {
		values.Set("type", string(p.gameType))
	}
	if !p.after.IsZero() {
		values.Set("after", strconv.FormatInt(p.after.Unix(), 10))
	}
	if !p.before.IsZero() {
		values.Set("before", strconv.FormatInt(p.before.Unix(), 10))
	}
	if p.beforeID != 0 {
		values.Set("before_id", strconv.FormatUint(p.beforeID, 10))
	}
	if p.afterID != 0 {
		values.Set("after_id", strconv.FormatUint(p.afterID, 10))
	}

	return values
}

// encodePlayers joins steam ids as comma-separated decimals in
// insertion order, with no trailing separator.
func encodePlayers(players []SteamID) string {
	parts := make([]string, len(players))
	for i, id := range players {
		parts[i] = id.String()
	}

	return strings.Join(parts, ",")
}
