package wizard

// Steps lists every step in order.
func Steps() []Step {
	return []Step{StepSelectCV, StepJobDetails, StepContext, StepGeneration}
}
