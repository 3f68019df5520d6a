// Package stdlib holds the script prelude embedded in the binary.
package stdlib

import _ "embed"

// Prelude is a function expression taking (native, global). It builds the
// script-facing exaplot namespace on top of the natives object.
//
//go:embed exaplot.js
var Prelude string

// PreludeName is the file name reported in tracebacks from prelude code.
const PreludeName = "<exaplot>"
