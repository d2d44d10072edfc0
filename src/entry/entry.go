package entry

// Address is the content address of an entry: the string form of the CIDv1
// of its canonical encoding. The address of an AgentID entry is the agent's
// hex public key.
type Address string

// AgentRef identifies an agent. It is the address of the agent's identity
// entry, so it can be used wherever an Address is expected, for example as
// the base of a link.
type AgentRef = Address

// Entry is implemented by the closed set of entry shapes of this package.
type Entry interface {
	Kind() Kind
	entry()
}

// AgentID is the identity entry committed as the first entry of every chain.
type AgentID struct {
	PubKey AgentRef `json:"pub_key"`
	Nick   string   `json:"nick"`
}

// BadgeClass describes a type of badge. CreatorAgent is the trust root of the
// class and ValidatorsRequired is the number of claims a non-creator needs
// before asserting the badge.
type BadgeClass struct {
	Name               string   `json:"name"`
	Description        string   `json:"description"`
	Image              string   `json:"image"`
	CreatorAgent       AgentRef `json:"creator_address"`
	ValidatorsRequired int      `json:"validators"`
}

// BadgeClaim states that Issuer vouches for Recipient deserving BadgeClass.
type BadgeClaim struct {
	Issuer     AgentRef  `json:"issuer"`
	Recipient  AgentRef  `json:"recipient"`
	BadgeClass Address   `json:"badge_class"`
	Evidences  []Address `json:"evidences"`
}

// BadgeAssertion states that Recipient holds a badge of BadgeClass.
type BadgeAssertion struct {
	BadgeClass Address  `json:"badge_class"`
	Recipient  AgentRef `json:"recipient"`
}

// Badge is the legacy mutable badge, grown by successive updates that each
// append one issuer.
type Badge struct {
	Recipient  AgentRef   `json:"recipient"`
	BadgeClass Address    `json:"badge_class"`
	Issuers    []AgentRef `json:"issuers"`
	Evidences  []Address  `json:"evidences"`
}

func (*AgentID) Kind() Kind        { return KindAgentID }
func (*Anchor) Kind() Kind         { return KindAnchor }
func (*BadgeClass) Kind() Kind     { return KindBadgeClass }
func (*BadgeClaim) Kind() Kind     { return KindBadgeClaim }
func (*BadgeAssertion) Kind() Kind { return KindBadgeAssertion }
func (*Badge) Kind() Kind          { return KindBadge }

func (*AgentID) entry()        {}
func (*Anchor) entry()         {}
func (*BadgeClass) entry()     {}
func (*BadgeClaim) entry()     {}
func (*BadgeAssertion) entry() {}
func (*Badge) entry()          {}

// InitialBadge returns the zero-issuer badge of recipient for class. Because
// its content is fully determined by its arguments, every agent computes the
// same address for it, which is how the legacy design locates a badge.
func InitialBadge(recipient AgentRef, class Address) *Badge {
	return &Badge{
		Recipient:  recipient,
		BadgeClass: class,
		Issuers:    []AgentRef{},
		Evidences:  []Address{},
	}
}

// HasIssuer reports whether agent is among the badge's issuers.
func (b *Badge) HasIssuer(agent AgentRef) bool {
	for _, i := range b.Issuers {
		if i == agent {
			return true
		}
	}
	return false
}

// Copy returns a deep copy of the badge.
func (b *Badge) Copy() *Badge {
	return &Badge{
		Recipient:  b.Recipient,
		BadgeClass: b.BadgeClass,
		Issuers:    append([]AgentRef{}, b.Issuers...),
		Evidences:  append([]Address{}, b.Evidences...),
	}
}
