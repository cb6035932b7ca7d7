// Package startup handles configuration loading and the structured startup
// and shutdown log sequence. Configuration comes entirely from environment
// variables, logged as it is read so a container's first screen of output
// answers "what is this instance doing".
package startup
