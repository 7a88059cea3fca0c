package htf

const criticalProximityBand = 0.009 // 0.9% of price

// Proximity finds the nearest SUPPORT below and nearest RESISTANCE above the
// current price among levels, and reports whether either is within 0.9% of
// price (isNearCriticalLevel).
func Proximity(levels []Level, price float64) (nearestSupport, nearestResistance *Level, isNearCritical bool, criticalType LevelType) {
	var support, resistance *Level
	for i := range levels {
		lvl := &levels[i]
		switch lvl.Type {
		case Support:
			if lvl.Price <= price && (support == nil || lvl.Price > support.Price) {
				support = lvl
			}
		case Resistance:
			if lvl.Price >= price && (resistance == nil || lvl.Price < resistance.Price) {
				resistance = lvl
			}
		}
	}

	isNear := false
	var criticalSide LevelType
	if support != nil && price > 0 && (price-support.Price)/price <= criticalProximityBand {
		isNear = true
		criticalSide = Support
	}
	if resistance != nil && price > 0 && (resistance.Price-price)/price <= criticalProximityBand {
		// If both are within band, the nearer one wins.
		if !isNear || (resistance.Price-price) < (price-support.Price) {
			isNear = true
			criticalSide = Resistance
		}
	}

	return support, resistance, isNear, criticalSide
}
