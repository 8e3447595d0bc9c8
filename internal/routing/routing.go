// Package routing classifica requisições da API do SyriaHub em categorias de rate limit.
package routing

import (
	"fmt"
	"net/http"
	"strings"

	"syriahub-gateway/middleware/ratelimit/domain"
)

// Rule associa um método (vazio = qualquer) e um prefixo de path a uma categoria.
type Rule struct {
	Method   string
	Prefix   string
	Category domain.Category
}

func (r Rule) matches(req *http.Request) bool {
	if r.Method != "" && !strings.EqualFold(r.Method, req.Method) {
		return false
	}
	return strings.HasPrefix(req.URL.Path, r.Prefix)
}

// DefaultRules cobre as rotas da API que têm política própria; o resto cai
// no fallback por método de Table.Classify.
func DefaultRules() []Rule {
	return []Rule{
		{Prefix: "/api/auth/", Category: domain.CategoryAuth},
		{Method: http.MethodPost, Prefix: "/api/upload", Category: domain.CategoryUpload},
		{Method: http.MethodPost, Prefix: "/api/reports", Category: domain.CategoryReport},
		{Method: http.MethodPost, Prefix: "/api/appeals", Category: domain.CategoryReport},
	}
}

// Table é uma lista ordenada de regras: a primeira que casa vence.
type Table struct {
	rules []Rule
}

// NewTable valida as categorias contra policies. Categoria desconhecida é erro
// de configuração e falha aqui, não na hora de atender a requisição.
func NewTable(rules []Rule, policies domain.Policies) (*Table, error) {
	for i, r := range rules {
		if _, err := policies.Lookup(r.Category); err != nil {
			return nil, fmt.Errorf("route rule %d (%s %s): %w", i, r.Method, r.Prefix, err)
		}
	}
	for _, c := range []domain.Category{domain.CategoryRead, domain.CategoryWrite} {
		if _, err := policies.Lookup(c); err != nil {
			return nil, fmt.Errorf("fallback category: %w", err)
		}
	}
	out := make([]Rule, len(rules))
	copy(out, rules)
	return &Table{rules: out}, nil
}

// Classify retorna a categoria de req. Sem regra, métodos seguros são read e o resto write.
func (t *Table) Classify(req *http.Request) domain.Category {
	for _, r := range t.rules {
		if r.matches(req) {
			return r.Category
		}
	}
	switch req.Method {
	case http.MethodGet, http.MethodHead, http.MethodOptions:
		return domain.CategoryRead
	default:
		return domain.CategoryWrite
	}
}

func (t *Table) Rules() []Rule {
	out := make([]Rule, len(t.rules))
	copy(out, t.rules)
	return out
}
