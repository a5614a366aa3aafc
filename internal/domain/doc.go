// Package domain translates between a generic geocoding request model and the
// ArcGIS World Geocoding Service, producing GeoJSON point features.
//
// # Operations
//
// Four operations are modelled, each mapped to one provider endpoint:
//
//	autocomplete -> suggest
//	search       -> findAddressCandidates
//	bulk         -> geocodeAddresses (authenticated)
//	reverse      -> reverseGeocode
//
// Request types carry caller credentials and generic options. The Build*
// functions derive the provider parameters; the Translate* functions map the
// provider payload back to a [FeatureCollection].
//
// # Provider Conventions
//
// Points are serialized as "lon,lat". Bounding extents are serialized as
// "minLon,maxLat,maxLon,minLat", upper-left corner first.
//
// Candidate scores are 0-100 and become a 0-1 confidence. Scores sometimes
// arrive as strings; only the integer prefix is kept ("97.5" -> 0.97).
//
// Batch records the provider could not place come back without a location, or
// with "NaN" ordinates. They are mapped to a sentinel feature at [0, 0] labelled
// [NotFoundLabel] so every submitted address keeps a feature at its position.
//
// Reverse geocode attributes spell the locality key "city" in lower case,
// unlike the capitalized "City" of candidate attributes.
//
// # Property Names
//
// Feature properties follow the Pelias naming: confidence, country, country_a,
// county, label, locality, name, neighbourhood, region and, for batch results,
// resultId.
package domain
