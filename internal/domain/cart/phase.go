package cart

// Phase is the lifecycle state of the live cart
type Phase string

const (
	// PhaseAnonymous: cart mirrors the device-local snapshot, mutations are rejected
	PhaseAnonymous Phase = "ANONYMOUS"
	// PhaseLoading: a signed-in load is fetching the remote cart
	PhaseLoading Phase = "LOADING"
	// PhaseAuthenticated: cart mirrors the remote cart, mutations are allowed
	PhaseAuthenticated Phase = "AUTHENTICATED"
)

// AllowsMutations reports whether cart commands may run in this phase
func (p Phase) AllowsMutations() bool {
	return p == PhaseAuthenticated
}
