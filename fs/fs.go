package appfs

import "embed"

// CommonPasswordsPath is the gzipped list of passwords users may not pick.
const CommonPasswordsPath = "assets/common-passwords.txt.gz"

// FS holds the SQL migrations, the email / receipt templates and the common passwords list.
//go:embed assets migrations all:templates
var FS embed.FS
