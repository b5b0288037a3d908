package entity

import (
	"encoding/json"
	"errors"
)

type DiscrepancyKind string

const (
	DiscrepancyMissing DiscrepancyKind = "missing"
	DiscrepancyField   DiscrepancyKind = "field"
)

// Discrepancy é uma diferença entre o snapshot A (dirige a comparação) e o snapshot B.
type Discrepancy struct {
	Kind   DiscrepancyKind
	Email  string
	Source Source
	Target Source

	// DiscrepancyMissing
	Record Lead

	// DiscrepancyField
	Field       string
	SourceValue any
	TargetValue any
}

func NewMissingDiscrepancy(email string, source, target Source, record Lead) (Discrepancy, error) {
	if source.Name == "" || target.Name == "" {
		return Discrepancy{}, errors.New("discrepancy sources are required")
	}
	return Discrepancy{
		Kind:   DiscrepancyMissing,
		Email:  email,
		Source: source,
		Target: target,
		Record: record,
	}, nil
}

func NewFieldDiscrepancy(email, field string, source, target Source, sourceValue, targetValue any) (Discrepancy, error) {
	if source.Name == "" || target.Name == "" {
		return Discrepancy{}, errors.New("discrepancy sources are required")
	}
	if field == "" {
		return Discrepancy{}, errors.New("discrepancy field is required")
	}
	return Discrepancy{
		Kind:        DiscrepancyField,
		Email:       email,
		Source:      source,
		Target:      target,
		Field:       field,
		SourceValue: sourceValue,
		TargetValue: targetValue,
	}, nil
}

// ErrorMessage é o texto gravado em "error" para registros ausentes.
func (d Discrepancy) ErrorMessage() string {
	return "Missing in " + d.Target.Title
}

// MarshalJSON gera o formato dos relatórios:
//
//	{"Email": ..., "error": "Missing in MongoDB", "zoho_record": {...}}
//	{"Email": ..., "field": "Phone", "zoho_value": ..., "mongo_value": ...}
func (d Discrepancy) MarshalJSON() ([]byte, error) {
	out := map[string]any{"Email": d.Email}

	switch d.Kind {
	case DiscrepancyMissing:
		out["error"] = d.ErrorMessage()
		out[d.Source.Name+"_record"] = d.Record
	case DiscrepancyField:
		out["field"] = d.Field
		out[d.Source.Name+"_value"] = d.SourceValue
		out[d.Target.Name+"_value"] = d.TargetValue
	default:
		return nil, errors.New("unknown discrepancy kind: " + string(d.Kind))
	}

	return json.Marshal(out)
}
