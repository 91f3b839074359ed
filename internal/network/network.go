package network

import (
	"io"
	"log/slog"

	"github.com/roach88/plexsim/internal/plex"
)

// ReactionSink is notified of every reaction the network creates. The
// scheduler implements it so new reactions are scheduled immediately.
type ReactionSink interface {
	ReactionAdded(id ReactionID)
}

// Observer receives creation events, e.g. for metrics.
type Observer interface {
	FamilyAdded(f *Family)
	SpeciesAdded(s *Species)
	ReactionAdded(r *Reaction)
}

type nopObserver struct{}

func (nopObserver) FamilyAdded(*Family)     {}
func (nopObserver) SpeciesAdded(*Species)   {}
func (nopObserver) ReactionAdded(*Reaction) {}

// Option configures a Network.
type Option func(*Network)

// WithLogger sets the logger. The default discards everything.
func WithLogger(l *slog.Logger) Option {
	return func(n *Network) {
		n.logger = l
	}
}

// WithObserver registers an observer for creation events.
func WithObserver(o Observer) Option {
	return func(n *Network) {
		n.observer = o
	}
}

// Network is the lazily generated reaction network.
//
// Not safe for concurrent use; one simulation owns one network.
type Network struct {
	cat        *plex.Catalog
	classifier *plex.Classifier[FamilyID]
	logger     *slog.Logger
	observer   Observer
	sink       ReactionSink

	families  []*Family
	species   []*Species
	reactions []*Reaction

	generators []generator
	omniplexes []*Omniplex

	siteFeatures    map[siteKey]*Feature
	bindingFeatures map[bindingKey]*Feature
	molFeatures     map[plex.MolID]*Feature

	dedup    map[reactionKey]ReactionID
	names    map[string]SpeciesID
	declared []SpeciesID
}

func newNetwork(cat *plex.Catalog, opts ...Option) *Network {
	n := &Network{
		cat:             cat,
		classifier:      plex.NewClassifier[FamilyID](),
		logger:          slog.New(slog.NewTextHandler(io.Discard, nil)),
		observer:        nopObserver{},
		siteFeatures:    make(map[siteKey]*Feature),
		bindingFeatures: make(map[bindingKey]*Feature),
		molFeatures:     make(map[plex.MolID]*Feature),
		dedup:           make(map[reactionKey]ReactionID),
		names:           make(map[string]SpeciesID),
	}
	for _, opt := range opts {
		opt(n)
	}
	return n
}

// SetSink attaches the scheduler. Reactions created before the sink is set
// are not replayed; the scheduler responds to them when it primes.
func (n *Network) SetSink(s ReactionSink) {
	n.sink = s
}

// Catalog returns the mol catalog.
func (n *Network) Catalog() *plex.Catalog {
	return n.cat
}

// NumFamilies returns the number of families created so far.
func (n *Network) NumFamilies() int {
	return len(n.families)
}

// Family returns a family by ID.
func (n *Network) Family(id FamilyID) *Family {
	return n.families[id]
}

// NumSpecies returns the number of species created so far.
func (n *Network) NumSpecies() int {
	return len(n.species)
}

// Species returns a species by ID. Callers must not mutate it.
func (n *Network) Species(id SpeciesID) *Species {
	if id < 0 || int(id) >= len(n.species) {
		panic(&InvariantError{Code: ErrCodeUnknownSpecies, Message: "species id out of range", Species: id})
	}
	return n.species[id]
}

// SpeciesByName looks up a species by its unique name.
func (n *Network) SpeciesByName(name string) (*Species, bool) {
	id, ok := n.names[name]
	if !ok {
		return nil, false
	}
	return n.species[id], true
}

// Declared returns the explicitly declared species in declaration order.
func (n *Network) Declared() []SpeciesID {
	return n.declared
}

// NumReactions returns the number of reactions created so far.
func (n *Network) NumReactions() int {
	return len(n.reactions)
}

// Reaction returns a reaction by ID.
func (n *Network) Reaction(id ReactionID) *Reaction {
	return n.reactions[id]
}

// Generators returns the names of the registered generators in ID order.
func (n *Network) Generators() []string {
	names := make([]string, len(n.generators))
	for i, g := range n.generators {
		names[i] = g.name()
	}
	return names
}

// GeneratorName returns the name of a generator, or "explicit".
func (n *Network) GeneratorName(id GeneratorID) string {
	if id == NoGenerator || int(id) >= len(n.generators) {
		return "explicit"
	}
	return n.generators[id].name()
}

// Stats summarizes network size.
type Stats struct {
	Families  int
	Species   int
	Reactions int
}

// Stats returns the current network size.
func (n *Network) Stats() Stats {
	return Stats{
		Families:  len(n.families),
		Species:   len(n.species),
		Reactions: len(n.reactions),
	}
}

// Intern recognizes a complex with per-instance states (in p's order) and
// returns its species, creating family and species as needed.
func (n *Network) Intern(p plex.Plex, states []plex.StateID) SpeciesID {
	famID, iso, _ := n.classifier.Recognize(n.cat, p, n.newFamily)
	fam := n.families[famID]
	params := make([]plex.StateID, len(states))
	for i, s := range states {
		params[iso.Forward[i]] = s
	}
	return n.member(fam, params)
}
