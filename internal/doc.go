// Package internal contains the implementation packages for the mailwright CLI.
//
// # Package Organization
//
//   - config: .mailwright.yml, MAILWRIGHT_* environment and secrets
//   - paths: the path set derived from structure type and environment
//   - data: shared and per-template data documents
//   - catalog: the template index shown on the preview page
//   - renderer: template rendering and the preview index
//   - mjml: MJML to HTML compilation for the responsive structure
//   - validation: command allow-lists, websocket origins and address parsing
//   - images: image copy and optimization
//   - archive: per-template zip packaging
//   - pipeline: stage composition, build state and metrics
//   - watcher: debounced file system monitoring
//   - websocket: live reload clients
//   - server: the preview HTTP server
//   - devloop: watch, rebuild and reload
//   - notify: sending a built template through a mail transport
//   - errors, logging, version: shared infrastructure
package internal
