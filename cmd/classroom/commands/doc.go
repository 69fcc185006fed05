// Package commands defines the classroom CLI used by teachers to browse
// curriculums, review per-student rollups and grade attempts.
//
// Commands
//
//   - curriculums   List curriculums
//   - tree          Print a topic tree, optionally selecting a topic
//   - report        Per-student rollup for a topic, optionally as .xlsx
//   - show          Print an attempt with its responses and grading state
//   - grade         Set the mark and remarks of one question
//   - upload        Upload the evaluated (marked-up) document of an attempt
//   - finalize      Lock an attempt's grades
//
// By default the CLI talks to the classroom API (LEARN_CLIENT_API_URL). With
// --direct it opens the curriculum files and the PostgreSQL attempt store
// itself, and grading events are written to the database.
package commands
