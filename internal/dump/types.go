package dump

// ModuleKind is the constructor used to instantiate a module in the config dump.
type ModuleKind string

const (
	KindProducer   ModuleKind = "EDProducer"
	KindFilter     ModuleKind = "EDFilter"
	KindAnalyzer   ModuleKind = "EDAnalyzer"
	KindOutput     ModuleKind = "OutputModule"
	KindESProducer ModuleKind = "ESProducer"
	KindESSource   ModuleKind = "ESSource"
)

// ModuleKinds lists every recognized module constructor.
var ModuleKinds = []ModuleKind{
	KindProducer,
	KindFilter,
	KindAnalyzer,
	KindOutput,
	KindESProducer,
	KindESSource,
}

// Valid reports whether k is one of the recognized module constructors.
func (k ModuleKind) Valid() bool {
	for _, known := range ModuleKinds {
		if k == known {
			return true
		}
	}
	return false
}

// TagKind identifies the shape a reference was written in.
type TagKind string

const (
	TagInputTag    TagKind = "InputTag"    // Single event-data reference
	TagESInputTag  TagKind = "ESInputTag"  // Single event-setup reference
	TagVInputTag   TagKind = "VInputTag"   // Element of an event-data reference list
	TagVESInputTag TagKind = "VESInputTag" // Element of an event-setup reference list
)

// IsList reports whether the tag is an element of a list-valued reference.
func (k TagKind) IsList() bool {
	return k == TagVInputTag || k == TagVESInputTag
}

// Parameter is a scalar parameter with its declared type and raw value text.
type Parameter struct {
	Type  string `json:"type"`  // e.g. "int32", "untracked.string"
	Value string `json:"value"` // Raw text, quotes and whitespace stripped
}

// ReferenceTag is a parameter that names another module as a data source.
type ReferenceTag struct {
	Field    string  `json:"field"`           // Owning parameter name
	Kind     TagKind `json:"type"`            // Shape of the reference
	Index    *int    `json:"index,omitempty"` // Position within a list, nil for singles
	Module   string  `json:"module"`          // Target module label
	Instance string  `json:"instance"`        // Product instance, "" when absent
	Process  string  `json:"process"`         // Process name, "" when absent

	// Set by resolution against the graph label index.
	Found    bool    `json:"found"`
	TargetID *string `json:"targetId"`
}

// Module is a single module instantiation recovered from the config dump.
type Module struct {
	Name          string               `json:"name"`
	Kind          ModuleKind           `json:"type"`
	Plugin        string               `json:"plugin"`
	Parameters    map[string]Parameter `json:"parameters"`
	ReferenceTags []ReferenceTag       `json:"inputTags"`
	RawSnippet    string               `json:"rawSnippet"`
}

// Stats counts what the parser matched and what it dropped.
type Stats struct {
	Statements  int // Module statements matched
	Skipped     int // Statements without a usable parameter block
	Overwritten int // Statements that replaced an earlier module of the same name
	Tags        int // Reference tags extracted across all kept modules
}

// Result is the output of parsing one config dump.
type Result struct {
	Modules map[string]*Module
	Stats   Stats
}
