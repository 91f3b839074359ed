package runquery

// Column is a filterable column of the runs table.
type Column string

// Filterable columns.
const (
	ColID         Column = "id"
	ColParentID   Column = "parent_run_id"
	ColModelName  Column = "model_name"
	ColModelHash  Column = "model_hash"
	ColSeed       Column = "seed"
	ColDepth      Column = "depth"
	ColMethod     Column = "method"
	ColStopReason Column = "stop_reason"
)

var columns = map[Column]bool{
	ColID:         true,
	ColParentID:   true,
	ColModelName:  true,
	ColModelHash:  true,
	ColSeed:       true,
	ColDepth:      true,
	ColMethod:     true,
	ColStopReason: true,
}

// Predicate is a condition on a run row.
//
// This is a sealed interface; only types in this package implement it, so
// the compiler's type switch is exhaustive.
type Predicate interface {
	predicateNode()
}

// Equals matches rows whose column equals Value. Value must be a string,
// an integer or a uint64 seed.
type Equals struct {
	Column Column
	Value  any
}

func (Equals) predicateNode() {}

// IsNull matches rows whose column is NULL: root runs for ColParentID,
// unfinished runs for ColStopReason.
type IsNull struct {
	Column Column
}

func (IsNull) predicateNode() {}

// NotNull matches rows whose column is set.
type NotNull struct {
	Column Column
}

func (NotNull) predicateNode() {}

// And matches rows satisfying every predicate. An empty And matches every
// row.
type And struct {
	Predicates []Predicate
}

func (And) predicateNode() {}

// Filter collects the common run filters. Zero fields are ignored.
type Filter struct {
	Model      string
	Parent     string
	StopReason string
	Unfinished bool
}

// Predicate converts f to a predicate tree. An empty filter matches every
// run.
func (f Filter) Predicate() Predicate {
	var and And
	if f.Model != "" {
		and.Predicates = append(and.Predicates, Equals{Column: ColModelName, Value: f.Model})
	}
	if f.Parent != "" {
		and.Predicates = append(and.Predicates, Equals{Column: ColParentID, Value: f.Parent})
	}
	if f.StopReason != "" {
		and.Predicates = append(and.Predicates, Equals{Column: ColStopReason, Value: f.StopReason})
	}
	if f.Unfinished {
		and.Predicates = append(and.Predicates, IsNull{Column: ColStopReason})
	}
	return and
}
