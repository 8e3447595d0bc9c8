// Package infra contém implementações concretas (infraestrutura) para os contratos
// definidos no pacote domain.
//
// Exemplos:
//   - MemoryStore: janela fixa por chave em memória do processo (padrão)
//   - RedisCounter: janela fixa compartilhada entre instâncias via script Lua
//   - BurstStore: token bucket por chave usando golang.org/x/time/rate
//   - ChanPool: semáforo simples para limite de concorrência
//   - MemoryStatsStore, RedisStatsStore, PrometheusStats: destinos de estatísticas
package infra
