/*
Package globimap provides fixed-memory probabilistic counting structures.

A Sketch is a grid of depth rows by width saturating counters. Every row
has its own seeded hash function, and the estimated count of a key is the
minimum of the counters it maps to. Estimates never fall below the true
count of a key and only overestimate when other keys collide with it in
every row.

A Bitmap is the binary sibling of the Sketch: a Bloom-style map of 2-D
points with optional correction entries that suppress known false
positives when a region is rasterized.

Window and Rollup track rates per second from time-bucketed sketches, at
one resolution or several.

Neither Sketch nor Bitmap is safe for concurrent use. SyncSketch, Window
and Rollup lock for hosts that share them between goroutines.
*/
package globimap
