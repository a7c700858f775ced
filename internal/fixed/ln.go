package fixed

// lnTable holds ln(n + e) * Precision for n = 0..63. The table keeps the
// time-decay weight free of floating point: every node evaluating a
// settlement reads the same constants.
var lnTable = [64]uint64{
	1_000_000, // ln(e) = 1.0
	1_313_262, // ln(1 + e)
	1_547_563, // ln(2 + e)
	1_734_601, // ln(3 + e)
	1_890_066, // ln(4 + e)
	2_022_971, // ln(5 + e)
	2_138_990, // ln(6 + e)
	2_241_671, // ln(7 + e)
	2_333_586, // ln(8 + e)
	2_416_540, // ln(9 + e)
	2_491_930, // ln(10 + e)
	2_560_867, // ln(11 + e)
	2_624_230, // ln(12 + e)
	2_682_718, // ln(13 + e)
	2_736_892, // ln(14 + e)
	2_787_200, // ln(15 + e)
	2_834_006, // ln(16 + e)
	2_877_612, // ln(17 + e)
	2_918_272, // ln(18 + e)
	2_956_202, // ln(19 + e)
	2_991_583, // ln(20 + e)
	3_024_572, // ln(21 + e)
	3_055_305, // ln(22 + e)
	3_083_901, // ln(23 + e)
	3_110_467, // ln(24 + e)
	3_135_098, // ln(25 + e)
	3_157_880, // ln(26 + e)
	3_178_889, // ln(27 + e)
	3_198_196, // ln(28 + e)
	3_215_862, // ln(29 + e)
	3_231_943, // ln(30 + e)
	3_246_491, // ln(31 + e)
	3_259_550, // ln(32 + e)
	3_271_162, // ln(33 + e)
	3_281_365, // ln(34 + e)
	3_290_193, // ln(35 + e)
	3_297_677, // ln(36 + e)
	3_303_847, // ln(37 + e)
	3_308_728, // ln(38 + e)
	3_312_345, // ln(39 + e)
	3_314_718, // ln(40 + e)
	3_315_869, // ln(41 + e)
	3_315_816, // ln(42 + e)
	3_314_576, // ln(43 + e)
	3_312_165, // ln(44 + e)
	3_308_598, // ln(45 + e)
	3_303_889, // ln(46 + e)
	3_298_050, // ln(47 + e)
	3_291_094, // ln(48 + e)
	3_283_031, // ln(49 + e)
	3_273_873, // ln(50 + e)
	3_263_628, // ln(51 + e)
	3_252_306, // ln(52 + e)
	3_239_916, // ln(53 + e)
	3_226_465, // ln(54 + e)
	3_211_962, // ln(55 + e)
	3_196_413, // ln(56 + e)
	3_179_826, // ln(57 + e)
	3_162_207, // ln(58 + e)
	3_143_562, // ln(59 + e)
	3_123_897, // ln(60 + e)
	3_103_218, // ln(61 + e)
	3_081_530, // ln(62 + e)
	3_058_839, // ln(63 + e)
}

// Ln returns ln(n + e) * Precision. Submit orders at or beyond the table
// use a dampened linear extension anchored at ln(64) so the weight keeps
// decaying without the table growing unbounded.
func Ln(n uint32) uint64 {
	if int(n) < len(lnTable) {
		return lnTable[n]
	}
	const base uint64 = 4_158_883 // ln(64) * Precision
	extra := (uint64(n) - 64) * Precision / 64
	return base + extra/10
}
