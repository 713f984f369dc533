// Package domain models USGS earthquake summary feed data and the pure
// functions the monitor applies to it.
//
// # Data Source
//
// The USGS Earthquake Hazards Program publishes GeoJSON summary feeds at
// https://earthquake.usgs.gov/earthquakes/feed/v1.0/summary/, one document per
// time window (all_hour, all_day, all_week, all_month). There is no all-time
// feed; the "all" range is served from the month feed.
//
// # Feed Conventions
//
// Each document is a FeatureCollection:
//
//	{"type":"FeatureCollection","features":[{"id":"ak0241a2b3c","properties":{...},"geometry":{...}}]}
//
// Feature properties used here:
//
//	mag    magnitude, may be null for very small or unreviewed events
//	place  human-readable location, e.g. "12 km SSW of Volcano, Hawaii"; may be null
//	time   origin time in epoch milliseconds
//	url    event page on earthquake.usgs.gov
//	title  e.g. "M 2.3 - 12 km SSW of Volcano, Hawaii"
//
// Geometry coordinates are ordered [longitude, latitude, depth_km]. The
// normalizer swaps them to latitude/longitude; markers placed from unswapped
// pairs land in the wrong hemisphere for most events.
//
// Features arrive newest first. Depth may be negative for events above the
// geoid reference surface.
//
// # Classification
//
// Depth bands follow the usual seismological split:
//
//	shallow       depth <= 70 km
//	intermediate  70 km < depth <= 300 km
//	deep          depth > 300 km
//
// Magnitude classes drive marker size and color on the map and the badge in
// the list:
//
//	low       m < 3.0        small, green
//	moderate  3.0 <= m < 5.0 medium, orange
//	high      m >= 5.0       large, red
//
// Events of magnitude 4.5 and above are treated as significant and are
// candidates for alerts.
package domain
