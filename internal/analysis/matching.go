package analysis

type matchRule struct {
	name    string
	applies func(engagement, demand, problem float64) bool
	outcome Matching
}

// matchRules is evaluated top to bottom; the first rule that applies wins
var matchRules = []matchRule{
	{
		name:    "premium_expert",
		applies: func(e, d, _ float64) bool { return e >= 80 && d >= 80 },
		outcome: Matching{
			Category:    "프리미엄·전문가 카테고리",
			Image:       "신뢰·권위·전문가형",
			Skincare:    "고기능성 세럼/앰플/크림",
			ProductType: "프리미엄 집중케어 라인",
		},
	},
	{
		name:    "trend_curator",
		applies: func(e, _, _ float64) bool { return e >= 80 },
		outcome: Matching{
			Category:    "트렌드·큐레이터 카테고리",
			Image:       "트렌디·혁신·인플루언서형",
			Skincare:    "신제품/한정판/컬러",
			ProductType: "시즌 트렌드 라인",
		},
	},
	{
		name:    "daily_beginner",
		applies: func(e, d, p float64) bool { return e >= 60 && d >= 60 && p < 60 },
		outcome: Matching{
			Category:    "데일리·입문자 카테고리",
			Image:       "실용·안심·친절한 가이드형",
			Skincare:    "토너/로션/클렌징/저자극",
			ProductType: "베이직 루틴 세트",
		},
	},
	{
		name:    "skin_type_solution",
		applies: func(e, d, p float64) bool { return e >= 60 && d >= 60 && p >= 60 },
		outcome: Matching{
			Category:    "피부타입별·솔루션 카테고리",
			Image:       "전문가 코치·카운슬링형",
			Skincare:    "피부타입별 라인(건성/지성/민감)",
			ProductType: "맞춤형 솔루션 라인",
		},
	},
	{
		name:    "balanced_skincare",
		applies: func(e, _, _ float64) bool { return e >= 60 },
		outcome: Matching{
			Category:    "일반 스킨케어 카테고리",
			Image:       "신뢰·균형·안정형",
			Skincare:    "올인원/에센스/크림",
			ProductType: "데일리 기능성 제품",
		},
	},
	{
		name:    "intensive_care",
		applies: func(e, _, p float64) bool { return e >= 40 && p >= 70 },
		outcome: Matching{
			Category:    "기능성·집중케어 카테고리",
			Image:       "문제해결·전문가형",
			Skincare:    "앰플/세럼/고농축 라인",
			ProductType: "집중 케어 솔루션",
		},
	},
	{
		name:    "friendly_daily",
		applies: func(e, _, _ float64) bool { return e >= 40 },
		outcome: Matching{
			Category:    "일반 스킨케어 카테고리",
			Image:       "친근·실용형",
			Skincare:    "로션/크림/마스크팩",
			ProductType: "데일리 케어 제품",
		},
	},
	{
		name:    "growth_stage",
		applies: func(_, _, _ float64) bool { return true },
		outcome: Matching{
			Category:    "성장 필요 카테고리",
			Image:       "성장 단계·잠재력 모니터링",
			Skincare:    "기초 제품 협업 가능",
			ProductType: "샘플/체험 키트",
		},
	},
}

// MatchProfile picks the collaboration profile for the given component scores.
// Missing components count as 0.
func MatchProfile(components Components) Matching {
	_, m := matchRuleFor(components)
	return m
}

func matchRuleFor(components Components) (string, Matching) {
	e := components[ComponentEngagement]
	d := components[ComponentDemand]
	p := components[ComponentProblem]
	for _, r := range matchRules {
		if r.applies(e, d, p) {
			return r.name, r.outcome
		}
	}
	return "", Matching{}
}
