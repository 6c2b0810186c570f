package sqlinline

const QSelectSetting = `--sql b6f5ef19-b6ed-48e6-a2ca-7e2800b31512
select value
from app_settings
where key = $1::text
limit 1;
`

const QUpsertSetting = `--sql 8cbe942f-8d63-47df-b591-3782cf6abf10
insert into app_settings (key, value, updated_at)
values ($1::text, $2::text, now())
on conflict (key) do update set
  value = excluded.value,
  updated_at = now();
`

const QListSettings = `--sql d7ce3ce0-4ac0-434b-94e8-dff46384297c
select key, value
from app_settings
order by key;
`
