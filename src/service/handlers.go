package service

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/peerbadge/badges/src/entry"
)

// CreateClassRequest is the body of POST /classes.
type CreateClassRequest struct {
	Name        string `json:"name"`
	Description string `json:"description"`
	Image       string `json:"image"`
	Validators  int    `json:"validators"`
	SelfAssert  bool   `json:"self_assert"`
}

// ClaimRequest is the body of POST /claims and POST /badges.
type ClaimRequest struct {
	Recipient entry.AgentRef  `json:"recipient"`
	Class     entry.Address   `json:"class"`
	Evidences []entry.Address `json:"evidences"`
}

// AddressResponse is returned by every write.
type AddressResponse struct {
	Address entry.Address `json:"address"`
}

// AddressesResponse is returned by the list queries.
type AddressesResponse struct {
	Addresses []entry.Address `json:"addresses"`
}

// EntryResponse wraps an entry with its kind.
type EntryResponse struct {
	Address entry.Address `json:"address"`
	Kind    string        `json:"kind"`
	Entry   entry.Entry   `json:"entry"`
}

// QuorumResponse is returned by GET /classes/{class}/quorum.
type QuorumResponse struct {
	Class            entry.Address   `json:"class"`
	Required         int             `json:"required"`
	Observed         int             `json:"observed"`
	Pending          []entry.Address `json:"pending"`
	CreatorAssertion bool            `json:"creator_assertion"`
	CreatorBypass    bool            `json:"creator_bypass"`
	Satisfied        bool            `json:"satisfied"`
	CanAssert        bool            `json:"can_assert"`
}

func addressParam(r *http.Request, name string) entry.Address {
	return entry.Address(chi.URLParam(r, name))
}

func (s *Service) list(w http.ResponseWriter, addrs []entry.Address, err error) {
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, AddressesResponse{Addresses: addrs})
}

func (s *Service) created(w http.ResponseWriter, addr entry.Address, err error) {
	if err != nil {
		s.logger.WithError(err).Debug("Write rejected")
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, AddressResponse{Address: addr})
}

// GetAgent returns the agent of the node.
func (s *Service) GetAgent(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, AddressResponse{Address: s.workflow.MyAddress()})
}

// GetClasses lists every class.
func (s *Service) GetClasses(w http.ResponseWriter, r *http.Request) {
	addrs, err := s.workflow.AllClasses()
	s.list(w, addrs, err)
}

// CreateClass creates a class authored by the node's agent.
func (s *Service) CreateClass(w http.ResponseWriter, r *http.Request) {
	var req CreateClassRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	addr, err := s.workflow.CreateClass(req.Name, req.Description, req.Image, req.Validators, req.SelfAssert)
	s.created(w, addr, err)
}

// GetClassClaims lists the claims issued for a class.
func (s *Service) GetClassClaims(w http.ResponseWriter, r *http.Request) {
	addrs, err := s.workflow.ClaimsForClass(addressParam(r, "class"))
	s.list(w, addrs, err)
}

// GetClassAssertions lists the assertions of a class.
func (s *Service) GetClassAssertions(w http.ResponseWriter, r *http.Request) {
	addrs, err := s.workflow.AssertionsForClass(addressParam(r, "class"))
	s.list(w, addrs, err)
}

// GetQuorum tells how far the node's agent is from asserting a class.
func (s *Service) GetQuorum(w http.ResponseWriter, r *http.Request) {
	class := addressParam(r, "class")
	status, err := s.workflow.QuorumStatus(class)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, QuorumResponse{
		Class:            class,
		Required:         status.Required,
		Observed:         status.Observed,
		Pending:          status.Pending,
		CreatorAssertion: status.CreatorAssertion,
		CreatorBypass:    status.CreatorBypass,
		Satisfied:        status.Satisfied(),
		CanAssert:        status.CanAssert(),
	})
}

// AssertCredential asserts that the node's agent holds a class.
func (s *Service) AssertCredential(w http.ResponseWriter, r *http.Request) {
	addr, err := s.workflow.AssertOwnCredential(addressParam(r, "class"))
	s.created(w, addr, err)
}

// IssueClaim issues a claim from the node's agent.
func (s *Service) IssueClaim(w http.ResponseWriter, r *http.Request) {
	var req ClaimRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	addr, err := s.workflow.IssueClaim(req.Recipient, req.Class, req.Evidences)
	s.created(w, addr, err)
}

// AcceptClaim accepts a claim made out to the node's agent.
func (s *Service) AcceptClaim(w http.ResponseWriter, r *http.Request) {
	addr, err := s.workflow.AcceptClaim(addressParam(r, "address"))
	s.created(w, addr, err)
}

// GetCreatedClasses lists the classes an agent created.
func (s *Service) GetCreatedClasses(w http.ResponseWriter, r *http.Request) {
	addrs, err := s.workflow.CreatedClasses(addressParam(r, "agent"))
	s.list(w, addrs, err)
}

// GetIssuedClaims lists the claims an agent issued, optionally for one class.
func (s *Service) GetIssuedClaims(w http.ResponseWriter, r *http.Request) {
	class := entry.Address(r.URL.Query().Get("class"))
	addrs, err := s.workflow.ClaimsIssuedBy(addressParam(r, "agent"), class)
	s.list(w, addrs, err)
}

// GetReceivedClaims lists the claims an agent received, optionally for one
// class.
func (s *Service) GetReceivedClaims(w http.ResponseWriter, r *http.Request) {
	class := entry.Address(r.URL.Query().Get("class"))
	addrs, err := s.workflow.ClaimsReceivedBy(addressParam(r, "agent"), class)
	s.list(w, addrs, err)
}

// GetAssertions lists the assertions an agent holds.
func (s *Service) GetAssertions(w http.ResponseWriter, r *http.Request) {
	addrs, err := s.workflow.AssertionsHeldBy(addressParam(r, "agent"))
	s.list(w, addrs, err)
}

// GetEntry returns an entry.
func (s *Service) GetEntry(w http.ResponseWriter, r *http.Request) {
	addr := addressParam(r, "address")
	e, err := s.workflow.GetEntry(addr)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, EntryResponse{Address: addr, Kind: e.Kind().String(), Entry: e})
}

// GetHistory returns every version of an entry.
func (s *Service) GetHistory(w http.ResponseWriter, r *http.Request) {
	versions, err := s.workflow.GetHistory(addressParam(r, "address"))
	if err != nil {
		writeError(w, err)
		return
	}
	res := make([]EntryResponse, 0, len(versions))
	for _, v := range versions {
		res = append(res, EntryResponse{Address: v.Address, Kind: v.Entry.Kind().String(), Entry: v.Entry})
	}
	writeJSON(w, http.StatusOK, res)
}

// ClaimBadge adds the node's agent as an issuer of a legacy badge.
func (s *Service) ClaimBadge(w http.ResponseWriter, r *http.Request) {
	var req ClaimRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	addr, err := s.workflow.ClaimAgentDeservesBadge(req.Recipient, req.Class, req.Evidences)
	s.created(w, addr, err)
}

// GetBadge returns the latest version of a legacy badge.
func (s *Service) GetBadge(w http.ResponseWriter, r *http.Request) {
	badge, err := s.workflow.GetBadge(addressParam(r, "recipient"), addressParam(r, "class"))
	if err != nil {
		writeError(w, err)
		return
	}
	addr, err := entry.AddressOf(badge)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, EntryResponse{Address: addr, Kind: badge.Kind().String(), Entry: badge})
}

// GetClassBadges lists the legacy badge versions of a class.
func (s *Service) GetClassBadges(w http.ResponseWriter, r *http.Request) {
	addrs, err := s.workflow.BadgesForClass(addressParam(r, "class"))
	s.list(w, addrs, err)
}

// GetRecipientBadges lists the legacy badges of an agent. The status query
// parameter selects completed (default) or tentative badges.
func (s *Service) GetRecipientBadges(w http.ResponseWriter, r *http.Request) {
	completed := r.URL.Query().Get("status") != "tentative"
	addrs, err := s.workflow.BadgesToRecipient(addressParam(r, "agent"), completed)
	s.list(w, addrs, err)
}

// GetIssuedBadges lists the legacy badges an agent issued.
func (s *Service) GetIssuedBadges(w http.ResponseWriter, r *http.Request) {
	addrs, err := s.workflow.BadgesFromIssuer(addressParam(r, "agent"))
	s.list(w, addrs, err)
}
