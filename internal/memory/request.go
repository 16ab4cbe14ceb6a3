package memory

// WriteRequest is a validated request to store one memory. Construct it
// with NewWriteRequest; a zero-value WriteRequest has not been checked
// against the scope field matrix.
type WriteRequest struct {
	Text       string
	UserID     string
	Scope      Scope
	Kind       Kind
	ProjectID  string
	AgentID    string
	SessionID  string
	Tags       []string
	Importance *float64
	Visibility Visibility
	RunID      string
}

// NewWriteRequest validates the scope field matrix at construction
// time. It never coerces: a violation fails immediately with a
// *ScopeError naming the offending field.
func NewWriteRequest(req WriteRequest) (WriteRequest, error) {
	if req.Kind == "" {
		req.Kind = DefaultKind
	}
	if req.Visibility == "" {
		req.Visibility = VisibilityPrivate
	}
	if err := ValidateScopeFields(req.Scope, req.ProjectID, req.AgentID, req.SessionID); err != nil {
		return WriteRequest{}, err
	}
	return req, nil
}

// ReadRequest is a validated request to search memories. Scope is
// optional; when present the same matrix applies as for writes. An
// absent scope does not mean "search everything" — cross-scope search
// is a separate, explicit opt-in enforced by the access controller.
type ReadRequest struct {
	UserID            string
	Scope             Scope // "" means unspecified
	Query             string
	ProjectID         string
	AgentID           string
	SessionID         string
	Limit             int
	MinImportance     *float64
	IncludeCrossScope bool
	RunID             string
}

// NewReadRequest validates the scope field matrix when a scope is set.
func NewReadRequest(req ReadRequest) (ReadRequest, error) {
	if req.Scope == "" {
		return req, nil
	}
	if err := ValidateScopeFields(req.Scope, req.ProjectID, req.AgentID, req.SessionID); err != nil {
		return ReadRequest{}, err
	}
	return req, nil
}
