package appfs

import "embed"

// FS holds files needed at runtime: goose migrations and the
// common-passwords list used by the password policy.
//go:embed migrations assets
var FS embed.FS
