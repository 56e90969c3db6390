// Package internaldefs holds the metric names, help strings and bucket bounds
// both exporters publish, and [Collect], which flattens a portal snapshot
// into families. Renaming a metric here renames it in every exporter.
package internaldefs
