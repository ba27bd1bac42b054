// Package logs reads back the JSON log files clmeval writes under
// paths.log_dir.
//
// Tail returns the last lines of a file (or the lines after an offset,
// optionally waiting for more). ParseEntry decodes one JSON record and
// Filter narrows entries to a run, model or minimum level so an operator
// can follow one evaluation while several days of logs accumulate.
package logs
