// internal/app/system/csvutil/limits.go
package csvutil

// MaxExportRows caps a single roster export.
const MaxExportRows = 20000
