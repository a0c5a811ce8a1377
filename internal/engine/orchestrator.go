package engine

import (
	"time"

	"go.uber.org/zap"

	"github.com/noah-isme/rvm-assignment-api/internal/models"
)

const (
	// NoCandidateName is the principal placeholder of a degraded proposal.
	NoCandidateName = "no eligible candidate"
	// NoCandidateReason justifies a degraded proposal.
	NoCandidateReason = "no available/eligible person"
)

// Part is one slot of a meeting program.
type Part struct {
	Title       string          `json:"title" yaml:"title"`
	Type        models.RoleType `json:"type" yaml:"type"`
	NeedsHelper bool            `json:"needsHelper" yaml:"needsHelper"`
}

// Program is the ordered list of parts for one meeting.
type Program struct {
	WeekID string
	Date   time.Time
	Parts  []Part
	// Reserved members already hold a reviewed slot this week and are not
	// proposed again.
	Reserved []models.Person
	// Kept positions were reviewed and are reported as they stand.
	Kept map[int]KeptSlot
}

// KeptSlot is the stored state of a reviewed position.
type KeptSlot struct {
	PrincipalID      string
	PrincipalName    string
	SecondaryID      string
	SecondaryName    string
	Status           models.AssignmentStatus
	RequiresApproval bool
	Score            float64
	Reason           string
	Degraded         bool
}

// DefaultParts is the weekly template used when a caller supplies no parts.
func DefaultParts() []Part {
	return []Part{
		{Title: "Bible Reading", Type: models.RoleTypeTreasures},
		{Title: "Starting a Conversation", Type: models.RoleTypeMinistry, NeedsHelper: true},
		{Title: "Following Up", Type: models.RoleTypeMinistry, NeedsHelper: true},
		{Title: "Making Disciples", Type: models.RoleTypeMinistry, NeedsHelper: true},
	}
}

// ProposedAssignment is the engine output for one part.
type ProposedAssignment struct {
	Part             Part                    `json:"part"`
	RoleID           string                  `json:"roleId"`
	Position         int                     `json:"position"`
	Category         models.RoleCategory     `json:"category"`
	PrincipalID      string                  `json:"principalId"`
	PrincipalName    string                  `json:"principalName"`
	SecondaryID      string                  `json:"secondaryId,omitempty"`
	SecondaryName    string                  `json:"secondaryName,omitempty"`
	RequiresApproval bool                    `json:"requiresApproval"`
	Status           models.AssignmentStatus `json:"status"`
	Score            float64                 `json:"score"`
	Reason           string                  `json:"reason"`
	PairingReason    string                  `json:"pairingReason,omitempty"`
	DefaultDuration  int                     `json:"defaultDuration"`
	Degraded         bool                    `json:"degraded"`
	RejectedCount    int                     `json:"rejectedCount"`
	// Kept marks a reviewed position that the run left untouched.
	Kept bool `json:"kept,omitempty"`
}

// HasHelper reports whether an assistant was paired.
func (p ProposedAssignment) HasHelper() bool {
	return p.SecondaryName != ""
}

// Orchestrator runs a program through filter, ranker, pairing and gate.
type Orchestrator struct {
	cfg    Config
	logger *zap.Logger
}

// NewOrchestrator constructs an orchestrator.
func NewOrchestrator(cfg Config, logger *zap.Logger) *Orchestrator {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Orchestrator{cfg: cfg, logger: logger}
}

// Config exposes the tuning in use.
func (o *Orchestrator) Config() Config {
	return o.cfg
}

// Generate assigns every part of the program in order. A part without any
// eligible member yields a degraded proposal instead of an error. Kept
// positions are skipped and Reserved members are never proposed.
func (o *Orchestrator) Generate(program Program, roster []models.Person, history []models.HistoryEntry) []ProposedAssignment {
	index := NewHistoryIndex(history)
	used := NewUsedSet()
	for _, person := range program.Reserved {
		used.Mark(person)
	}
	proposals := make([]ProposedAssignment, 0, len(program.Parts))

	for i, part := range program.Parts {
		profile := ProfileFor(part.Title, part.Type)
		proposal := ProposedAssignment{
			Part:            part,
			RoleID:          RoleID(program.WeekID, part.Title),
			Position:        i,
			Category:        profile.Category,
			DefaultDuration: profile.DefaultDuration,
		}

		if slot, ok := program.Kept[i]; ok {
			proposals = append(proposals, slot.apply(proposal))
			continue
		}

		filtered := Filter(roster, profile, program.Date, used)
		proposal.RejectedCount = len(filtered.Rejected)
		if len(filtered.Eligible) == 0 {
			proposal.PrincipalName = NoCandidateName
			proposal.Status = models.AssignmentStatusDraft
			proposal.Reason = NoCandidateReason
			proposal.Degraded = true
			o.logger.Warn("no eligible candidate",
				zap.String("week_id", program.WeekID),
				zap.String("role", part.Title),
				zap.Int("rejected", proposal.RejectedCount),
			)
			proposals = append(proposals, proposal)
			continue
		}

		ranked := Rank(filtered.Eligible, index, profile, profile.Category, o.cfg)
		principal := ranked[0]
		used.Mark(principal.Person)
		proposal.PrincipalID = principal.Person.ID
		proposal.PrincipalName = principal.Person.Name
		proposal.Score = principal.Score
		proposal.Reason = principal.Reason

		if part.NeedsHelper {
			pairing := PairHelper(principal.Person, filtered.Eligible, index, o.cfg)
			proposal.PairingReason = pairing.Reason
			if pairing.Helper != nil {
				used.Mark(pairing.Helper.Person)
				proposal.SecondaryID = pairing.Helper.Person.ID
				proposal.SecondaryName = pairing.Helper.Person.Name
			}
		}

		proposal.RequiresApproval = RequiresApproval(principal.Person, profile)
		proposal.Status = InitialStatus(proposal.RequiresApproval)
		proposals = append(proposals, proposal)
	}

	o.logger.Debug("program generated",
		zap.String("week_id", program.WeekID),
		zap.Int("parts", len(program.Parts)),
		zap.Int("used", used.Len()),
	)
	return proposals
}

func (k KeptSlot) apply(p ProposedAssignment) ProposedAssignment {
	p.PrincipalID = k.PrincipalID
	p.PrincipalName = k.PrincipalName
	p.SecondaryID = k.SecondaryID
	p.SecondaryName = k.SecondaryName
	p.Status = k.Status
	p.RequiresApproval = k.RequiresApproval
	p.Score = k.Score
	p.Reason = k.Reason
	p.Degraded = k.Degraded
	p.Kept = true
	return p
}
