// Package ratelimit fornece adapters HTTP (net/http) para o rate limit por categoria,
// o guard de rajada e o limite de concorrência.
//
// Visão geral (camadas):
//
//   - domain: categorias, políticas e contratos (sem dependência de net/http)
//   - application: algoritmo de janela fixa, políticas de limpeza, acquire/timeout
//   - infra: stores concretos (memória, Redis, token bucket, semáforo, estatísticas)
//   - ratelimit (este pacote): extração de IP, headers, gate por categoria e middlewares
//
// Fluxo de uma requisição protegida por Gate.Limit(categoria):
//
//  1. Lê o user id do contexto (preenchido antes pelo pacote identity) e o IP via ClientIP
//  2. Chama application.Limiter.Check
//  3. Se negado, responde 429 em JSON com Retry-After e o handler não roda
//  4. Se permitido, adiciona X-RateLimit-* na resposta e chama o próximo handler
//
// O IP vem de X-Forwarded-For / X-Real-IP sem validação: só é confiável se a borda
// (load balancer, CDN ou o próprio gateway com trust_forwarded_headers=false)
// sobrescreve esses headers.
package ratelimit
