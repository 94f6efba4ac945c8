package catalog

// Summarize computes aggregate statistics over a device sequence, typically
// the output of Filter. Default endpoints are the uncorrelated records
// literally named after the platform default alias; when no such record is
// present the summary reports none rather than guessing.
func Summarize(devices []DeviceRecord) Summary {
	s := Summary{TotalDevices: len(devices)}

	for i := range devices {
		d := &devices[i]
		if d.HasInput() {
			s.InputDevices++
		}
		if d.HasOutput() {
			s.OutputDevices++
		}
		if d.Identifier != DefaultAlias || d.Correlated() {
			continue
		}
		if d.HasInput() && s.DefaultInput == "" {
			s.DefaultInput = d.Identifier
		}
		if d.HasOutput() && s.DefaultOutput == "" {
			s.DefaultOutput = d.Identifier
		}
	}
	return s
}
