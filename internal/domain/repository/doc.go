// Package repository define los contratos de persistencia del dominio.
//
// Las implementaciones viven en internal/store/pg (PostgreSQL) e internal/store/memory.
// Los invariantes de unicidad se garantizan en el storage, no solo en la capa de servicio:
//
//   - tenant_api_keys.key_hash          → una API key pertenece a un único tenant
//   - provider_configs(tenant,provider) → una config por provider y tenant
//   - users(tenant,email)               → un usuario por email dentro del tenant
//   - identities(tenant,provider,ext)   → una identidad externa por tenant
//   - provider_refresh_tokens(user,prv) → un refresh token vigente por usuario y provider
//
// Convenciones: ctx siempre primero; tenantID explícito en toda lectura de usuarios;
// errores de dominio en errors.go.
package repository
