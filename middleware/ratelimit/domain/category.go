package domain

import (
	"fmt"
	"sort"
	"time"
)

// Category é o nome de uma política de rate limit (read, write, auth, upload, report).
//
// O conjunto é fechado: adicionar uma categoria significa adicionar uma entrada
// em DefaultPolicies.
type Category string

const (
	CategoryRead   Category = "read"
	CategoryWrite  Category = "write"
	CategoryAuth   Category = "auth"
	CategoryUpload Category = "upload"
	CategoryReport Category = "report"
)

// Policy é a configuração estática de uma categoria.
type Policy struct {
	// Identifier prefixa a chave do bucket ("{Identifier}:{userOrIP}").
	Identifier  string
	Window      time.Duration
	MaxRequests int
}

func (p Policy) Validate() error {
	if p.Identifier == "" {
		return fmt.Errorf("%w: empty identifier", ErrInvalidPolicy)
	}
	if p.Window <= 0 {
		return fmt.Errorf("%w: %s window must be > 0", ErrInvalidPolicy, p.Identifier)
	}
	if p.MaxRequests <= 0 {
		return fmt.Errorf("%w: %s max requests must be > 0", ErrInvalidPolicy, p.Identifier)
	}
	return nil
}

// Policies mapeia cada categoria para sua política.
type Policies map[Category]Policy

// DefaultPolicies retorna a tabela padrão. Cada chamada devolve um mapa novo.
func DefaultPolicies() Policies {
	return Policies{
		CategoryRead:   {Identifier: string(CategoryRead), Window: time.Minute, MaxRequests: 100},
		CategoryWrite:  {Identifier: string(CategoryWrite), Window: time.Minute, MaxRequests: 20},
		CategoryAuth:   {Identifier: string(CategoryAuth), Window: 15 * time.Minute, MaxRequests: 10},
		CategoryUpload: {Identifier: string(CategoryUpload), Window: time.Minute, MaxRequests: 5},
		CategoryReport: {Identifier: string(CategoryReport), Window: time.Hour, MaxRequests: 10},
	}
}

// IsKnownCategory reporta se name é uma das categorias padrão.
func IsKnownCategory(name string) bool {
	_, ok := DefaultPolicies()[Category(name)]
	return ok
}

// Lookup resolve a política de c.
func (p Policies) Lookup(c Category) (Policy, error) {
	pol, ok := p[c]
	if !ok {
		return Policy{}, fmt.Errorf("%w: %q", ErrUnknownCategory, c)
	}
	return pol, nil
}

// MustPolicy é como Lookup mas entra em pânico para categoria desconhecida.
// Categorias não vêm de input do usuário: uma categoria inválida é erro de programação
// e deve falhar na montagem das rotas, não em runtime.
func (p Policies) MustPolicy(c Category) Policy {
	pol, err := p.Lookup(c)
	if err != nil {
		panic(err)
	}
	return pol
}

// Categories retorna as categorias configuradas em ordem alfabética.
func (p Policies) Categories() []Category {
	out := make([]Category, 0, len(p))
	for c := range p {
		out = append(out, c)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

func (p Policies) Validate() error {
	for c, pol := range p {
		if err := pol.Validate(); err != nil {
			return fmt.Errorf("category %s: %w", c, err)
		}
	}
	return nil
}

// Clone devolve uma cópia rasa, segura para sobrescrever.
func (p Policies) Clone() Policies {
	out := make(Policies, len(p))
	for k, v := range p {
		out[k] = v
	}
	return out
}
