// Package trajectory owns parsed pose sequences. A Store holds one Trajectory
// per source log plus the merged timeline across all logs; every view is
// rebuilt from scratch on Load and never mutated incrementally.
//
// A Store is not safe for concurrent use. Callers that reload while serving
// queries must serialise access themselves.
package trajectory
