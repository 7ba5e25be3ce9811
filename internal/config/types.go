package config

import (
	"fmt"
	"strings"
)

// StructureType selects the template family and the stage sequence.
type StructureType string

const (
	StructureStandard   StructureType = "standard"
	StructureResponsive StructureType = "responsive"
)

// StructureTypes lists the accepted structure types.
var StructureTypes = []StructureType{StructureStandard, StructureResponsive}

// ParseStructureType parses s case-insensitively.
func ParseStructureType(s string) (StructureType, error) {
	st := StructureType(strings.ToLower(strings.TrimSpace(s)))
	if !st.Valid() {
		return "", fmt.Errorf("unknown structure type %q (supported: standard, responsive)", s)
	}
	return st, nil
}

// Valid reports whether st is one of the known structure types.
func (st StructureType) Valid() bool {
	return st == StructureStandard || st == StructureResponsive
}

// String implements pflag.Value.
func (st *StructureType) String() string {
	if st == nil {
		return ""
	}
	return string(*st)
}

// Set implements pflag.Value.
func (st *StructureType) Set(s string) error {
	parsed, err := ParseStructureType(s)
	if err != nil {
		return err
	}
	*st = parsed
	return nil
}

// Type implements pflag.Value.
func (st *StructureType) Type() string {
	return "structure"
}

// Env selects development or production behaviour. Production enables image
// optimization.
type Env string

const (
	EnvDev  Env = "dev"
	EnvProd Env = "prod"
)

// ParseEnv parses s case-insensitively. "development" and "production" are
// accepted as aliases.
func ParseEnv(s string) (Env, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "dev", "development":
		return EnvDev, nil
	case "prod", "production":
		return EnvProd, nil
	default:
		return "", fmt.Errorf("unknown env %q (supported: dev, prod)", s)
	}
}

// Valid reports whether e is a known environment.
func (e Env) Valid() bool {
	return e == EnvDev || e == EnvProd
}

// String implements pflag.Value.
func (e *Env) String() string {
	if e == nil {
		return ""
	}
	return string(*e)
}

// Set implements pflag.Value.
func (e *Env) Set(s string) error {
	parsed, err := ParseEnv(s)
	if err != nil {
		return err
	}
	*e = parsed
	return nil
}

// Type implements pflag.Value.
func (e *Env) Type() string {
	return "env"
}

// Mail transports accepted by notify.transport.
const (
	TransportSMTP     = "smtp"
	TransportMailgun  = "mailgun"
	TransportPostmark = "postmark"
	TransportDev      = "dev"
)

// Transports lists the accepted mail transports.
var Transports = []string{TransportSMTP, TransportMailgun, TransportPostmark, TransportDev}
