package geo

import "math"

// Israeli Transverse Mercator (Israel 1993 / Israeli TM Grid) parameters.
// Ellipsoid is GRS80; the datum shift to WGS84 uses the published
// translation vector, which is accurate to a few meters — more than enough
// for shelter ranking and the 50 m dedup threshold.
const (
	itmA  = 6378137.0          // GRS80 semi-major axis
	itmF  = 1 / 298.257222101  // GRS80 flattening
	itmK0 = 1.0000067          // scale factor at central meridian

	itmLat0 = 31.7343936111 * math.Pi / 180 // false-origin latitude
	itmLon0 = 35.2045169444 * math.Pi / 180 // central meridian

	itmFalseEasting  = 219529.584
	itmFalseNorthing = 626907.390

	// ITM (Israel 1993) -> WGS84 geocentric translation, meters.
	itmDX = -24.0024
	itmDY = -17.1032
	itmDZ = -17.8444
)

var (
	itmE2  = 2*itmF - itmF*itmF // first eccentricity squared
	itmEP2 = itmE2 / (1 - itmE2)
	itmE1  = (1 - math.Sqrt(1-itmE2)) / (1 + math.Sqrt(1-itmE2))
	itmM0  = meridianArc(itmLat0)
)

// meridianArc returns the GRS80 meridian arc length from the equator.
func meridianArc(phi float64) float64 {
	return itmA * ((1-itmE2/4-3*itmE2*itmE2/64-5*itmE2*itmE2*itmE2/256)*phi -
		(3*itmE2/8+3*itmE2*itmE2/32+45*itmE2*itmE2*itmE2/1024)*math.Sin(2*phi) +
		(15*itmE2*itmE2/256+45*itmE2*itmE2*itmE2/1024)*math.Sin(4*phi) -
		(35*itmE2*itmE2*itmE2/3072)*math.Sin(6*phi))
}

// ITMToWGS84 converts Israeli TM grid coordinates (easting, northing) to
// WGS84 latitude/longitude in degrees. Inverse transverse Mercator on GRS80
// followed by an abridged Molodensky datum shift.
func ITMToWGS84(easting, northing float64) (lat, lon float64) {
	m := itmM0 + (northing-itmFalseNorthing)/itmK0
	mu := m / (itmA * (1 - itmE2/4 - 3*itmE2*itmE2/64 - 5*itmE2*itmE2*itmE2/256))

	// Footpoint latitude.
	phi1 := mu +
		(3*itmE1/2-27*math.Pow(itmE1, 3)/32)*math.Sin(2*mu) +
		(21*itmE1*itmE1/16-55*math.Pow(itmE1, 4)/32)*math.Sin(4*mu) +
		(151*math.Pow(itmE1, 3)/96)*math.Sin(6*mu) +
		(1097*math.Pow(itmE1, 4)/512)*math.Sin(8*mu)

	sin1 := math.Sin(phi1)
	cos1 := math.Cos(phi1)
	tan1 := math.Tan(phi1)

	c1 := itmEP2 * cos1 * cos1
	t1 := tan1 * tan1
	n1 := itmA / math.Sqrt(1-itmE2*sin1*sin1)
	r1 := itmA * (1 - itmE2) / math.Pow(1-itmE2*sin1*sin1, 1.5)
	d := (easting - itmFalseEasting) / (n1 * itmK0)

	phi := phi1 - (n1*tan1/r1)*(d*d/2-
		(5+3*t1+10*c1-4*c1*c1-9*itmEP2)*math.Pow(d, 4)/24+
		(61+90*t1+298*c1+45*t1*t1-252*itmEP2-3*c1*c1)*math.Pow(d, 6)/720)

	lam := itmLon0 + (d-
		(1+2*t1+c1)*math.Pow(d, 3)/6+
		(5-2*c1+28*t1-3*c1*c1+8*itmEP2+24*t1*t1)*math.Pow(d, 5)/120)/cos1

	return molodensky(phi*180/math.Pi, lam*180/math.Pi)
}

// WGS84ToITM is the forward projection, used for round-trip verification and
// for building spatial filters against ITM-keyed endpoints.
func WGS84ToITM(lat, lon float64) (easting, northing float64) {
	lat, lon = molodenskyInverse(lat, lon)
	phi := lat * math.Pi / 180
	lam := lon * math.Pi / 180

	sinP := math.Sin(phi)
	cosP := math.Cos(phi)
	tanP := math.Tan(phi)

	n := itmA / math.Sqrt(1-itmE2*sinP*sinP)
	t := tanP * tanP
	c := itmEP2 * cosP * cosP
	a := (lam - itmLon0) * cosP
	m := meridianArc(phi)

	easting = itmFalseEasting + itmK0*n*(a+
		(1-t+c)*math.Pow(a, 3)/6+
		(5-18*t+t*t+72*c-58*itmEP2)*math.Pow(a, 5)/120)
	northing = itmFalseNorthing + itmK0*(m-itmM0+n*tanP*(a*a/2+
		(5-t+9*c+4*c*c)*math.Pow(a, 4)/24+
		(61-58*t+t*t+600*c-330*itmEP2)*math.Pow(a, 6)/720))
	return easting, northing
}

// molodensky shifts GRS80 (Israel 1993) geodetic coordinates to WGS84.
func molodensky(lat, lon float64) (float64, float64) {
	return molodenskyShift(lat, lon, itmDX, itmDY, itmDZ)
}

// molodenskyInverse shifts WGS84 geodetic coordinates back to GRS80.
func molodenskyInverse(lat, lon float64) (float64, float64) {
	return molodenskyShift(lat, lon, -itmDX, -itmDY, -itmDZ)
}

// molodenskyShift applies an abridged Molodensky translation. Both ellipsoids
// are near-identical here (GRS80 vs WGS84), so the da/df terms vanish.
func molodenskyShift(lat, lon, dx, dy, dz float64) (float64, float64) {
	phi := lat * math.Pi / 180
	lam := lon * math.Pi / 180

	sinP := math.Sin(phi)
	cosP := math.Cos(phi)
	sinL := math.Sin(lam)
	cosL := math.Cos(lam)

	n := itmA / math.Sqrt(1-itmE2*sinP*sinP)
	m := itmA * (1 - itmE2) / math.Pow(1-itmE2*sinP*sinP, 1.5)

	dPhi := (-dx*sinP*cosL - dy*sinP*sinL + dz*cosP) / m
	dLam := (-dx*sinL + dy*cosL) / (n * cosP)

	return (phi + dPhi) * 180 / math.Pi, (lam + dLam) * 180 / math.Pi
}
