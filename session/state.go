package session

// State is the session's position in the authentication lifecycle, derived
// from the token pair, the user record and the in-flight flags rather than
// stored on its own.
type State string

const (
	StateAnonymous      State = "anonymous"
	StateAuthenticating State = "authenticating"
	StateAuthenticated  State = "authenticated"
	StateHydratingUser  State = "hydrating-user"
	StateReady          State = "ready"
)

// hydrationPhase is the one-shot user-fetch latch: idle until the first
// attempt, fetching while the single permitted request is in flight,
// attempted forever after (until a full session reset).
type hydrationPhase int

const (
	hydrationIdle hydrationPhase = iota
	hydrationFetching
	hydrationAttempted
)
