package sessions

import (
	"strings"
	"time"

	"github.com/glucolink/cgm/readings"
)

// Session is an authenticated vendor session. Dexcom Share stores the session
// GUID in Token and the account GUID in AccountRef. LibreLinkUp stores the JWT
// in Token, the followed patient id in AccountRef, the raw account id in
// AccountID and the regional host it authenticated against in Region.
type Session struct {
	Token      string
	AccountRef string
	AccountID  string
	Region     string
	ExpiresAt  time.Time
}

func (s Session) Expired(now time.Time) bool {
	return !s.ExpiresAt.After(now)
}

// Key builds the cache key for an account. Identities are lowercased so
// credential case changes do not fork sessions.
func Key(vendor readings.Vendor, identity string) string {
	return string(vendor) + "/" + strings.ToLower(identity)
}
