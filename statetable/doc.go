// Package statetable provides the core types for a headless, state-driven data table
// backed by a remote data endpoint.
//
// This package defines the table configuration, the record and cell shapes returned by
// the data endpoint, response decoding, the observability interfaces used by the
// resultset and endpoint packages, and the common error definitions.
//
// The table is assembled from these parts:
//   - advice: named extension points with ordered around-chains
//   - trait: registries of roles and traits that install advice
//   - resultset: query state, URL building and the fetch lifecycle
//   - table: columns, rows, cells and the render/redraw protocol
//   - roles: built-in roles (paging, search, filter, download, ...) and traits
//
// Common usage pattern:
//
//	cfg, err := statetable.ParseConfig(embeddedJSON)
//	if err != nil {
//		// handle error
//	}
//
//	tbl, err := table.New(cfg, roles.TableOptions()...)
//	if err != nil {
//		// handle error
//	}
//
//	rs := tbl.Resultset()
//	if err := rs.Search(resultset.SearchOptions{"sortColumn": "name", "sortDesc": true}); err != nil {
//		// handle error
//	}
//	err = rs.Redraw(ctx)
//	html := tbl.View().HTML()
package statetable
