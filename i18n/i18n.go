package i18n

const (
	Uz = "uz"
	Ru = "ru"

	Default = Uz
)

// Languages in the order the picker shows them.
var Languages = []struct {
	Code  string
	Label string
}{
	{Uz, "🇺🇿 O'zbekcha"},
	{Ru, "🇷🇺 Русский"},
}

type text struct {
	uz string
	ru string
}

var translations = map[string]text{
	"start.greeting": {
		"👋 Assalomu alaykum! Stadion 24/7 — futbol maydonlarini onlayn band qiling.\n\n" +
			"/stadiums — maydonlar\n/bookings — buyurtmalarim\n/tournaments — turnirlar\n" +
			"/media — media\n/profile — profil\n/login — kirish\n/language — til",
		"👋 Здравствуйте! Stadion 24/7 — бронируйте футбольные поля онлайн.\n\n" +
			"/stadiums — стадионы\n/bookings — мои брони\n/tournaments — турниры\n" +
			"/media — медиа\n/profile — профиль\n/login — войти\n/language — язык",
	},
	"common.unknown_command": {"Noma'lum buyruq. /start ni bosing", "Неизвестная команда. Попробуйте /start"},
	"common.error":           {"Xatolik", "Ошибка"},
	"common.success":         {"Muvaffaqiyatli", "Успешно"},
	"common.cancel":          {"Bekor qilish", "Отмена"},
	"common.no":              {"Yo'q", "Нет"},
	"common.updated":         {"Yangilandi", "Обновлено"},
	"common.unavailable":     {"⚠️ Xizmat vaqtincha ishlamayapti. Keyinroq urinib ko'ring.", "⚠️ Сервис временно недоступен. Попробуйте позже."},

	"language.choose": {"Tilni tanlang:", "Выберите язык:"},
	"language.set":    {"✅ Til o'rnatildi", "✅ Язык установлен"},

	"stadiums.title":       {"⚽ Bizning maydonlar", "⚽ Наши стадионы"},
	"stadiums.empty":       {"Hozircha maydonlar yo'q.", "Пока нет стадионов."},
	"stadiums.load_error":  {"⚠️ Maydonlarni yuklashda xatolik.", "⚠️ Ошибка при загрузке стадионов."},
	"stadiums.not_found":   {"Maydon topilmadi.", "Стадион не найден."},
	"stadiums.perHour":     {"soatiga", "в час"},
	"stadiums.size":        {"O'lchami", "Размер"},
	"stadiums.surface":     {"Chim turi", "Тип покрытия"},
	"stadiums.roof":        {"Tomi", "Крыша"},
	"stadiums.about":       {"Maydon haqida", "О поле"},
	"stadiums.nearMetro":   {"Metro yaqinida", "Рядом с метро"},
	"stadiums.contact":     {"Bog'lanish", "Контакты"},
	"stadiums.book":        {"Band qilish", "Забронировать"},
	"stadiums.open247":     {"24/7 ochiq", "Открыто 24/7"},
	"stadiums.freeParking": {"Bepul turargoh", "Бесплатная парковка"},

	"booking.title":             {"Maydonni band qilish", "Бронирование поля"},
	"booking.date":              {"Sanani tanlang", "Выберите дату"},
	"booking.time":              {"Vaqtni tanlang (ketma-ket 3 soatgacha)", "Выберите время (до 3 часов подряд)"},
	"booking.loading":           {"🔄 Bo'sh vaqtlar yuklanmoqda...", "🔄 Загружаю свободное время..."},
	"booking.login_required":    {"🔐 Band qilish uchun tizimga kiring: /login", "🔐 Чтобы забронировать, войдите: /login"},
	"booking.no_hours":          {"Bu kunga bo'sh vaqt yo'q.", "На этот день нет свободного времени."},
	"booking.selected":          {"Tanlangan", "Выбрано"},
	"booking.next":              {"Davom etish ▶️", "Далее ▶️"},
	"booking.confirm":           {"Tasdiqlash", "Подтвердить"},
	"booking.back":              {"◀️ Orqaga", "◀️ Назад"},
	"booking.close":             {"✖️ Yopish", "✖️ Закрыть"},
	"booking.summary":           {"Buyurtmani tekshiring", "Проверьте бронь"},
	"booking.total":             {"Jami", "Итого"},
	"booking.price_note":        {"Yakuniy narxni server belgilaydi.", "Окончательную цену определяет сервер."},
	"booking.submitting":        {"⏳ Yuborilmoqda...", "⏳ Отправляю..."},
	"booking.success":           {"✅ Muvaffaqiyatli band qilindi!", "✅ Успешно забронировано!"},
	"booking.error":             {"⚠️ Xatolik yuz berdi. Qaytadan urinib ko'ring.", "⚠️ Произошла ошибка. Попробуйте ещё раз."},
	"booking.conflict":          {"⚠️ Tanlangan vaqt allaqachon band qilingan. Boshqa vaqtni tanlang.", "⚠️ Выбранное время уже занято. Выберите другое."},
	"booking.validation":        {"⚠️ Ketma-ket soatlarni tanlang.", "⚠️ Выберите часы подряд."},
	"booking.pick_date":         {"⚠️ Avval sanani tanlang.", "⚠️ Сначала выберите дату."},
	"booking.in_progress":       {"⏳ So'rov yuborilmoqda, kuting.", "⏳ Запрос уже отправляется, подождите."},
	"booking.closed":            {"Band qilish yopildi.", "Бронирование закрыто."},
	"booking.booked":            {"Band", "Занято"},
	"booking.selection_dropped": {"⚠️ Tanlangan vaqt band bo'ldi, qaytadan tanlang.", "⚠️ Выбранное время заняли, выберите заново."},
	"booking.refreshed":         {"🔄 Bo'sh vaqtlar yangilandi.", "🔄 Свободное время обновлено."},

	"bookings.title":      {"📋 Mening buyurtmalarim", "📋 Мои брони"},
	"bookings.empty":      {"Buyurtmalar tarixi hozircha bo'sh. Maydon tanlash: /stadiums", "История броней пока пуста. Выбрать поле: /stadiums"},
	"bookings.load_error": {"⚠️ Buyurtmalarni yuklashda xatolik.", "⚠️ Ошибка при загрузке броней."},
	"bookings.status":     {"Holati", "Статус"},

	"auth.login":           {"Kirish", "Войти"},
	"auth.enter_phone":     {"📱 Telefon raqamingizni yuboring (+998 XX XXX XX XX) yoki kontaktni ulashing.", "📱 Отправьте номер телефона (+998 XX XXX XX XX) или поделитесь контактом."},
	"auth.share_contact":   {"📱 Kontaktni ulashish", "📱 Поделиться контактом"},
	"auth.invalid_phone":   {"⚠️ Telefon raqam noto'g'ri. Format: +998 XX XXX XX XX", "⚠️ Неверный номер. Формат: +998 XX XXX XX XX"},
	"auth.otp_sent":        {"✉️ %s raqamiga yuborilgan kodni kiriting.", "✉️ Введите код, отправленный на %s."},
	"auth.otp_failed":      {"⚠️ Kod yuborilmadi. Qaytadan urinib ko'ring.", "⚠️ Не удалось отправить код. Попробуйте ещё раз."},
	"auth.invalid_code":    {"⚠️ Kod noto'g'ri. Qaytadan urinib ko'ring.", "⚠️ Неверный код. Попробуйте ещё раз."},
	"auth.success":         {"✅ Tizimga muvaffaqiyatli kirdingiz!", "✅ Вы успешно вошли!"},
	"auth.already":         {"Siz allaqachon tizimdasiz. Chiqish: /logout", "Вы уже вошли. Выйти: /logout"},
	"auth.logout_desc":     {"Haqiqatan ham tizimdan chiqmoqchimisiz?", "Вы действительно хотите выйти?"},
	"auth.logout_confirm":  {"Ha, chiqish", "Да, выйти"},
	"auth.logged_out":      {"👋 Tizimdan chiqdingiz.", "👋 Вы вышли из системы."},
	"auth.session_expired": {"🔐 Sessiya tugadi. Qaytadan kiring: /login", "🔐 Сессия истекла. Войдите снова: /login"},
	"auth.required":        {"🔐 Avval tizimga kiring: /login", "🔐 Сначала войдите: /login"},

	"profile.title":            {"👤 Mening profilim", "👤 Мой профиль"},
	"profile.phone":            {"Telefon raqam", "Номер телефона"},
	"profile.full_name":        {"To'liq ism", "Полное имя"},
	"profile.manager_name":     {"Menejer ismi", "Имя менеджера"},
	"profile.role":             {"Rol", "Роль"},
	"profile.managed_stadiums": {"Boshqariladigan maydonlar", "Управляемые стадионы"},
	"profile.edit_name":        {"✏️ Ismni o'zgartirish", "✏️ Изменить имя"},
	"profile.enter_name":       {"Yangi ismni yuboring:", "Отправьте новое имя:"},
	"profile.name_unchanged":   {"Ism o'zgarmadi.", "Имя не изменилось."},
	"profile.update_success":   {"✅ Profil muvaffaqiyatli yangilandi", "✅ Профиль успешно обновлен"},
	"profile.update_error":     {"⚠️ Profilni yangilashda xatolik", "⚠️ Ошибка при обновлении профиля"},
	"profile.load_error":       {"⚠️ Profil ma'lumotlarini yuklashda xatolik", "⚠️ Ошибка при загрузке данных профиля"},
	"profile.upload_avatar":    {"📷 Rasm yuklash", "📷 Загрузить аватар"},
	"profile.send_photo":       {"Rasm yuboring. Kvadrat qilib qirqiladi. Maks 5MB: JPG, PNG, WEBP", "Отправьте фото. Оно будет обрезано до квадрата. Макс 5МБ: JPG, PNG, WEBP"},
	"profile.avatar_error":     {"⚠️ Rasmni yuklashda xatolik", "⚠️ Не удалось загрузить изображение"},
	"profile.avatar_users":     {"Rasmni faqat foydalanuvchilar yuklay oladi.", "Аватар могут загружать только пользователи."},
	"profile.image_size":       {"Hajmi", "Размер"},
	"profile.delete":           {"🗑 Hisobni o'chirish", "🗑 Удалить аккаунт"},
	"profile.delete_desc":      {"Hisobingiz butunlay o'chiriladi. Davom etasizmi?", "Ваш аккаунт будет удален навсегда. Продолжить?"},
	"profile.delete_confirm":   {"Ha, o'chirish", "Да, удалить"},
	"profile.account_deleted":  {"Hisobingiz muvaffaqiyatli o'chirildi.", "Ваш аккаунт был успешно удален."},
	"profile.delete_error":     {"⚠️ Hisobni o'chirishda xatolik", "⚠️ Ошибка при удалении аккаунта"},

	"tournaments.title":        {"🏆 Faol turnirlar", "🏆 Активные турниры"},
	"tournaments.empty":        {"Hozircha faol turnirlar yo'q.", "Пока нет активных турниров."},
	"tournaments.load_error":   {"⚠️ Turnirlarni yuklashda xatolik.", "⚠️ Ошибка при загрузке турниров."},
	"tournaments.entrance_fee": {"Ishtirok to'lovi", "Взнос за участие"},
	"tournaments.start_date":   {"Boshlanish vaqti", "Время начала"},
	"tournaments.free":         {"Bepul", "Бесплатно"},

	"media.title":        {"▶️ Eng so'nggi video lavhalar", "▶️ Последние видео ролики"},
	"media.empty":        {"Hozircha video yo'q.", "Пока нет видео."},
	"media.load_error":   {"⚠️ Media yuklashda xatolik.", "⚠️ Ошибка при загрузке медиа."},
	"media.invalid_link": {"Noto'g'ri YouTube havola", "Неверная ссылка YouTube"},
}

// T looks up key in lang. Unknown languages fall back to Uzbek and
// unknown keys to the key itself.
func T(lang, key string) string {
	tr, ok := translations[key]
	if !ok {
		return key
	}
	if lang == Ru && tr.ru != "" {
		return tr.ru
	}
	return tr.uz
}

// Supported reports whether lang has translations.
func Supported(lang string) bool {
	return lang == Uz || lang == Ru
}
