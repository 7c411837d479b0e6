package companion

// Weights - веса классификатора и LLM при слиянии текстовых оценок.
type Weights struct {
	Classifier float64 `yaml:"classifier"`
	LLM        float64 `yaml:"llm"`
}

// FusionPolicy описывает, когда доверять классификатору.
type FusionPolicy struct {
	Confidence  float64 `yaml:"confidence"`
	Trusted     Weights `yaml:"trusted"`
	Distrusted  Weights `yaml:"distrusted"`
	AudioWeight float64 `yaml:"audio_weight"`
}

// Conflict - классификатор видит позитив, а LLM негатив.
func Conflict(classifier, llm Scores) bool {
	c, _ := classifier.Top()
	l, _ := llm.Top()
	return c.Positive() && l.Negative()
}

// WeightsFor выбирает веса для пары оценок.
func (p FusionPolicy) WeightsFor(classifier, llm Scores) Weights {
	_, top := classifier.Top()
	if Conflict(classifier, llm) || top < p.Confidence {
		return p.Distrusted
	}
	return p.Trusted
}

// FuseText смешивает оценки классификатора и LLM.
func (p FusionPolicy) FuseText(classifier, llm Scores) Scores {
	w := p.WeightsFor(classifier, llm)
	fused := make(Scores, len(Emotions))
	for _, e := range Emotions {
		fused[e] = classifier[e]*w.Classifier + llm[e]*w.LLM
	}
	return fused
}

// BlendAudio добавляет оценки по голосу с весом AudioWeight.
func (p FusionPolicy) BlendAudio(text, audio Scores) Scores {
	final := make(Scores, len(Emotions))
	for _, e := range Emotions {
		final[e] = text[e]*(1-p.AudioWeight) + audio[e]*p.AudioWeight
	}
	return final
}
