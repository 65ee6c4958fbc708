// Package domain models the incident reports shown on the map.
//
// # Reports
//
// Reports come from the report service ordered by recency. A report has a
// category (tipo), optional description, coordinates, and optional location
// labels. The colonia is a neighbourhood and the alcaldía the borough that
// contains it; display prefers the colonia.
//
// # Categories
//
// Six categories have a fixed marker color:
//
//	bache         #ff6b6b
//	choque        #ee5a6f
//	semaforo      #feca57
//	inundacion    #48dbfb
//	manifestacion #ff9ff3
//	otro          #a55eea
//
// Any other value is drawn in [DefaultColor].
//
// # Statistics
//
// Zone statistics count incidents per zona from two sources: the C5 city
// monitoring feed and user submissions.
package domain
