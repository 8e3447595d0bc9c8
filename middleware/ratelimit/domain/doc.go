// Package domain define os contratos e tipos de domínio do rate limit por categoria.
//
// Este pacote não depende de net/http nem de implementações concretas.
// Categorias, políticas, entradas de janela fixa e resultados de checagem vivem aqui
// para que as camadas application e infra possam ser testadas isoladamente.
package domain
