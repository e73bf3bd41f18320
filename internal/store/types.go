package store

import "time"

type Activity struct {
	Database  string
	Code      string
	Name      string
	Location  string
	Unit      string
	Exchanges []Exchange
}

func (a Activity) Key() ActivityKey {
	return ActivityKey{Database: a.Database, Code: a.Code}
}

type ActivityKey struct {
	Database string
	Code     string
}

func (k ActivityKey) String() string {
	return k.Database + "/" + k.Code
}

// Exchange is parametrized iff Formula is non-nil.
type Exchange struct {
	ID             int64
	InputDatabase  string
	InputCode      string
	Type           string
	Amount         float64
	Formula        *string
	Group          string
	OriginalAmount *float64
}

func (e Exchange) Parametrized() bool {
	return e.Formula != nil
}

type ActivityInput struct {
	Database  string
	Code      string
	Name      string
	Location  string
	Unit      string
	Exchanges []ExchangeInput
}

type ExchangeInput struct {
	InputDatabase string
	InputCode     string
	Type          string
	Amount        float64
	Formula       *string
	Group         string
}

// ParameterRecord is the submission payload for one activity parameter.
// Nil pointers are absent fields.
type ParameterRecord struct {
	Group           string
	Database        string
	Name            string
	Amount          float64
	Code            *string
	Formula         *string
	UncertaintyType *int
	Loc             *float64
	Scale           *float64
	Minimum         *float64
	Maximum         *float64
}

type ActivityParameter struct {
	ID int64
	ParameterRecord
}

// UncertaintyData is the JSON document persisted alongside a parameter.
type UncertaintyData struct {
	UncertaintyType *int     `json:"uncertainty type,omitempty"`
	Loc             *float64 `json:"loc,omitempty"`
	Scale           *float64 `json:"scale,omitempty"`
	Minimum         *float64 `json:"minimum,omitempty"`
	Maximum         *float64 `json:"maximum,omitempty"`
}

func (r ParameterRecord) Uncertainty() UncertaintyData {
	return UncertaintyData{
		UncertaintyType: r.UncertaintyType,
		Loc:             r.Loc,
		Scale:           r.Scale,
		Minimum:         r.Minimum,
		Maximum:         r.Maximum,
	}
}

func (r *ParameterRecord) SetUncertainty(d UncertaintyData) {
	r.UncertaintyType = d.UncertaintyType
	r.Loc = d.Loc
	r.Scale = d.Scale
	r.Minimum = d.Minimum
	r.Maximum = d.Maximum
}

type Group struct {
	Name    string
	Fresh   bool
	Updated time.Time
}

type ParameterizedExchange struct {
	Group      string
	ExchangeID int64
	Formula    string
	Database   string
	Code       string
}
