package analysis

// KeywordCategory names a keyword list used for comment and title matching
type KeywordCategory string

const (
	KeywordDemand  KeywordCategory = "demand"
	KeywordProblem KeywordCategory = "problem"
	KeywordFormat  KeywordCategory = "format"
)

// defaultKeywords is matched case-insensitively. Order is preserved so the
// compiled alternations are deterministic.
var defaultKeywords = map[KeywordCategory][]string{
	// purchase, usage and positive-experience signals
	KeywordDemand: {
		"구매했어요", "샀어요", "사봤어요", "주문했어요", "결제했어요",
		"사용해봤어요", "써봤어요", "발라봤어요", "써보니", "사용해보니",
		"쓰고 있어요", "사용 중", "쓰는 중", "사용중",
		"좋았어요", "좋아요", "만족", "추천", "효과 좋", "괜찮았어요",
		"따라했어요", "따라해봤어요", "해봤어요", "적용했어요",
		"재구매", "또 샀어요", "또 살게요", "리필",
		"bought", "purchased", "tried", "using", "recommend",
	},
	// skin concerns, irritation and requests for a specific variant
	KeywordProblem: {
		"여드름", "뾰루지", "트러블", "블랙헤드", "화이트헤드",
		"모공", "각질", "피지", "번들거림",
		"민감", "예민", "따가워", "따갑", "아파", "아파요",
		"자극", "홍조", "붉은기", "빨개", "화끈",
		"가려워", "간지러", "간지럽", "긁어",
		"건조", "당김", "푸석", "각질",
		"유분", "번들", "기름", "번들번들",
		"뒤집어", "올라와", "올라왔",
		"아토피", "건선", "지루성", "습진",
		"피부염", "알레르기",
		"부작용", "안 맞", "맞지 않", "문제",
		"악화", "심해져", "나빠져",
		"고민", "걱정", "어떡해", "힘들어",
		"스트레스", "콤플렉스",
		"민감성 버전", "민감성 제품", "민감용", "민감 피부용",
		"순한 제품", "순한거", "순하게", "순한 게",
		"건성용", "건성 제품", "건조 피부용",
		"지성용", "지성 제품", "지성 피부용",
		"복합성용", "복합성 제품",
		"없나요", "알려주세요", "추천해주세요", "있나요",
		"버전 없나요", "제품 알려주세요", "용 알려주세요",
		"좀 알려", "알려줘", "추천해줘",
	},
	// before/after, how-to and review title formats
	KeywordFormat: {
		"전후", "전/후", "before", "after", "변화", "비포", "애프터",
		"사용법", "쓰는법", "바르는법", "활용법", "하는법", "방법", "루틴", "꿀팁",
		"리뷰", "후기", "솔직", "사용기", "체험", "추천", "털기", "신상", "또산템", "또 산템",
		"추천템", "신상템", "내돈내산", "최애", "잘산템", "올리브영", "다이소",
	},
}

// DefaultKeywords returns a copy of the built-in keyword lists
func DefaultKeywords() map[KeywordCategory][]string {
	out := make(map[KeywordCategory][]string, len(defaultKeywords))
	for cat, words := range defaultKeywords {
		out[cat] = append([]string(nil), words...)
	}
	return out
}
