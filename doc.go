/*
Package prism provides content-descriptor value types for similarity search in Go.

Prism implements the "metric object" layer of a content-based retrieval system:
fixed-format multimedia feature descriptors (color layout, edge histograms,
region shape, face templates, keyword sets), each bundled with a distance
function, a line-oriented text serialization, and a compact binary
serialization. Composite "meta-objects" aggregate several named descriptors
into one logical record with a weighted aggregate distance.

# Overview

A similarity index ranks objects by distance. Prism supplies the objects: small
immutable values that know how to measure their distance to a like-typed peer,
how to write themselves to a text dump or a binary buffer, and how to
reconstruct themselves from either. Index, bucket and storage engines are
deliberately out of scope; they interact with descriptors only through the
Descriptor interface.

# Quick Start

Create two descriptors and measure their distance:

	package main

	import (
	    "fmt"
	    "log"

	    "github.com/wizenheimer/prism"
	)

	func main() {
	    a, err := prism.NewByteVector([]byte{1, 2, 3, 4})
	    if err != nil {
	        log.Fatal(err)
	    }
	    b, err := prism.NewByteVector([]byte{1, 2, 3, 10})
	    if err != nil {
	        log.Fatal(err)
	    }

	    d, err := prism.Distance(a, b)
	    if err != nil {
	        log.Fatal(err)
	    }
	    fmt.Printf("L1 distance: %.1f\n", d) // 6.0
	}

# Descriptor Types

Numeric vectors with L1 (Manhattan) distance over fixed-length arrays:

	bv, _ := prism.NewByteVector(data)    // uint8 elements
	sv, _ := prism.NewShortVector(shorts) // int16 elements
	iv, _ := prism.NewIntVector(ints)     // int32 elements

FloatVector uses L2 (Euclidean) distance, and HalfVector stores half-precision
bit patterns for a 50% storage saving:

	fv, _ := prism.NewFloatVector(floats)
	hv, _ := prism.NewHalfVectorFromFloats(floats)

MPEG-7 style visual descriptors with reference distance functions:

	eh, _ := prism.NewEdgeHistogram(bins)    // 80 bins, multi-resolution L1
	cl, _ := prism.NewColorLayout(y, cb, cr) // DCT coefficients, weighted L2
	rs, _ := prism.NewRegionShape(coeffs)    // 35 ART coefficients

String descriptors, including Smith-Waterman-Gotoh local alignment over a
PAM250 substitution matrix:

	sw, _ := prism.NewSmithWaterman("MKVLAT")
	d, _ := prism.Distance(sw, other)

Sparse keyword identifier sets with weighted Jaccard and cosine distances:

	kws, dropped := prism.NewKeyWordSetFromText(wordIndex, title, tags, terms)

# Distance Thresholds

Every Distance method accepts a threshold. Implementations may stop
accumulating once the running distance exceeds it, in which case the returned
value is only guaranteed to be greater than the threshold. When the true
distance is at or below the threshold the exact value is always returned:

	d, _ := a.Distance(b, 25.0) // exact iff d <= 25.0

Pass MaxDistance to disable the early exit.

# Meta-Objects

Meta-objects bundle several named descriptors under one locator and combine
their distances as a weighted sum of normalized sub-distances. Descriptors
missing from either operand are silently skipped, so partial records degrade
gracefully:

	key := prism.LocatorKey("img42")
	rec, _ := prism.NewShapeAndColorFromMap(key, descriptors, true)
	d, _ := prism.Distance(rec, other)

MetaObjectMap supports variable membership described by a self-identifying
header line, with per-member weights supplied by an optional YAML-loadable
weight profile.

# Serialization

Descriptors round-trip through a line-oriented text format (one logical object
per block, '#'-prefixed comment lines carry the object key) and through a
compact little-endian binary format (length-prefixed arrays, nil collections
encoded with a -1 sentinel count):

	prism.WriteObjectText(w, d)
	n, err := d.WriteBinary(buf)

StreamReader and StreamWriter process whole files of objects, with transparent
gzip compression selected by a ".gz" suffix.

# Thread Safety

Descriptors are immutable after construction and safe for concurrent reads.
The static tables backing the distance functions (quantization tables, the
PAM250 matrix, descriptor name tables) are initialized once at startup and
never mutated. Word indexes are the only mutable shared state and are safe for
concurrent use.

# License

MIT License - Copyright (c) 2025 wizenheimer
*/
package prism
